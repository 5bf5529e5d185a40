// Package llm implements a streaming OpenAI-compatible chat/completions
// client: a single HTTP POST, incremental Server-Sent-Events parsing,
// separation of content and reasoning streams, and cancellation
// propagation. No retries are attempted at any layer.
package llm

// Descriptor is an immutable record describing one logical model: its
// advertised context window, the OpenAI-compatible chat/completions
// endpoint to call, the provider's own model identifier, credentials, and
// any extra parameters to merge into every request body.
type Descriptor struct {
	// Name is the logical name used to select this model via --model.
	Name string
	// MaxTokens is the advertised combined context window, in tokens.
	MaxTokens int
	// Endpoint must contain "/chat/completions".
	Endpoint string
	// Model is the provider's own model identifier, sent as the request's
	// "model" field when non-empty.
	Model string
	// APIKey may be empty, in which case calls fail fast.
	APIKey string
	// Params is deep-copied onto the request body's top level. A boolean
	// "stream" key selects streaming vs one-shot completion.
	Params map[string]any
}

// Config is an ordered catalog of Descriptors; index 0 is the default.
// Order is preserved from whatever produced it (environment-derived
// defaults or a config file).
type Config struct {
	Models []Descriptor
}

// Default returns the catalog's default model, or false if empty.
func (c Config) Default() (Descriptor, bool) {
	if len(c.Models) == 0 {
		return Descriptor{}, false
	}
	return c.Models[0], true
}

// Get looks up a model by logical name.
func (c Config) Get(name string) (Descriptor, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Descriptor{}, false
}

// ChunkKind distinguishes user-visible content from a provider's
// chain-of-thought reasoning stream.
type ChunkKind int

const (
	Content ChunkKind = iota
	Reasoning
)

// Options carries the per-call chunk callback and cancellation predicate.
type Options struct {
	// OnChunk, when non-nil, is invoked once per delivered chunk in
	// receive order, synchronously from the transport read context.
	OnChunk func(text string, kind ChunkKind)
	// Cancelled, when non-nil, is polled before each read step and before
	// each chunk dispatch; a true result aborts the transfer.
	Cancelled func() bool
}
