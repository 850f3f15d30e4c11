package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var loaderOnce sync.Once

// useOfflineRanks makes tiktoken read the embedded BPE rank files instead of
// downloading them on first use.
func useOfflineRanks() {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// BPE counts tokens with a byte-pair-encoding tokenizer.
// Encoders are pooled; each session borrows one and returns it on Release.
type BPE struct {
	encoding string
	pool     sync.Pool
}

// NewBPE loads the named encoding (e.g. "cl100k_base").
// The first encoder is built eagerly so a bad encoding name fails at startup.
func NewBPE(encoding string) (*BPE, error) {
	useOfflineRanks()

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}

	b := &BPE{encoding: encoding}
	b.pool.New = func() any {
		e, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil
		}
		return e
	}
	b.pool.Put(enc)

	return b, nil
}

// Encoding returns the encoding name.
func (b *BPE) Encoding() string {
	return b.encoding
}

// Acquire implements Tokenizer.
func (b *BPE) Acquire() Session {
	enc, _ := b.pool.Get().(*tiktoken.Tiktoken)
	if enc == nil {
		// The encoding loaded once in NewBPE; a later failure leaves us with the heuristic.
		return Estimator.Acquire()
	}
	return &bpeSession{enc: enc, owner: b}
}

type bpeSession struct {
	enc   *tiktoken.Tiktoken
	owner *BPE
}

func (s *bpeSession) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(s.enc.Encode(text, nil, nil))
}

func (s *bpeSession) Release() {
	if s.enc == nil {
		return
	}
	s.owner.pool.Put(s.enc)
	s.enc = nil
}
