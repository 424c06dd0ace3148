package ai

import "context"

// CompleteOpts tunes a single text completion. Zero values mean vendor
// defaults.
type CompleteOpts struct {
	Temperature float32
	MaxTokens   int
}

// TextProvider is a chat-completion vendor. Available reports whether the
// vendor is configured (key/host present); it is consulted fresh on every
// orchestration pass.
type TextProvider interface {
	Name() string
	Available() bool
	Complete(ctx context.Context, system, user string, opts CompleteOpts) (string, error)
}

// Image is a rendered image plus its storage format ("png" or "svg").
type Image struct {
	Data   []byte
	Format string
}

// ImageProvider is an image-generation vendor.
type ImageProvider interface {
	Name() string
	Available() bool
	Render(ctx context.Context, prompt string) (Image, error)
}

// OrderText filters and orders providers by the configured priority list.
func OrderText(order []string, providers map[string]TextProvider) []TextProvider {
	out := make([]TextProvider, 0, len(order))
	for _, name := range order {
		if p, ok := providers[name]; ok && p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// OrderImage filters and orders image providers by the configured priority list.
func OrderImage(order []string, providers map[string]ImageProvider) []ImageProvider {
	out := make([]ImageProvider, 0, len(order))
	for _, name := range order {
		if p, ok := providers[name]; ok && p.Available() {
			out = append(out, p)
		}
	}
	return out
}
