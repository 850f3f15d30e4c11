// Package domain contains the core business entities and value objects.
package domain

// ProviderVariant selects the upstream deployment shape.
type ProviderVariant string

const (
	// VariantOpenAI talks to a fixed completion endpoint with bearer auth.
	VariantOpenAI ProviderVariant = "openai"

	// VariantAzure talks to a deployment-scoped endpoint with an api-key header.
	VariantAzure ProviderVariant = "azure"
)

// IsValid reports whether the variant is supported.
func (v ProviderVariant) IsValid() bool {
	return v == VariantOpenAI || v == VariantAzure
}

// Upstream holds the already-resolved settings of the completion provider.
type Upstream struct {
	// Variant picks URL shape and auth header.
	Variant ProviderVariant `json:"variant" mapstructure:"variant"`

	// BaseURL is the scheme and host of the provider, without a trailing slash.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// CompletionPath is appended to BaseURL for the openai variant.
	CompletionPath string `json:"completion_path" mapstructure:"completion_path"`

	// CompletionField is the gjson path of the completion text in a success body.
	CompletionField string `json:"completion_field" mapstructure:"completion_field"`

	// Organization is sent as OpenAI-Organization for the openai variant. Optional.
	Organization string `json:"organization" mapstructure:"organization"`

	// DeploymentID and APIVersion parameterize the azure URL.
	DeploymentID string `json:"deployment_id" mapstructure:"deployment_id"`
	APIVersion   string `json:"api_version" mapstructure:"api_version"`

	// MaxTokens is the completion ceiling sent as max_tokens.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// TimeoutSeconds bounds the outbound call. 0 leaves it to the request context.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}
