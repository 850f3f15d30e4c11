package tokenizer

import "unicode"

// TokensPerWord is the approximation ratio (1 word ≈ 1.3 tokens).
const TokensPerWord = 1.3

// Estimator counts with EstimateTokens. Use it where no BPE encoding is available.
var Estimator Tokenizer = CountFunc(EstimateTokens)

// EstimateTokens estimates the number of tokens in a text string.
// Words are runs of letters and digits; every word counts as 1.3 tokens,
// with a minimum of one token when any word is present.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	words := 0
	inWord := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	tokens := int(float64(words) * TokensPerWord)
	if tokens == 0 && words > 0 {
		tokens = 1
	}
	return tokens
}
