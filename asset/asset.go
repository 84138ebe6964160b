// Package asset defines the handle type used by behavior fields that point at
// external resources, and the loader capability the engine delegates to. The
// engine itself never opens files; whatever the loader yields is what a
// decoded field receives.
package asset

// Kind identifies the expected resource category of a handle.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTexture
	KindFont
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindFont:
		return "font"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ParseKind maps a struct tag value to a Kind. Unrecognized values map to
// KindUnknown rather than failing; the loader is the final authority.
func ParseKind(s string) Kind {
	switch s {
	case "texture":
		return KindTexture
	case "font":
		return KindFont
	case "audio":
		return KindAudio
	default:
		return KindUnknown
	}
}

// Handle is a resolved reference to an external resource. A zero handle means
// "no asset"; a blank path always decodes to a zero handle.
type Handle struct {
	Path string
	Kind Kind
}

func (h Handle) IsZero() bool { return h.Path == "" }

// Loader is the single capability the engine requires from the asset
// pipeline. Implementations may load synchronously or block on an async
// pipeline, but must return a resolved handle or a definitive error.
type Loader interface {
	Load(path string, kind Kind) (Handle, error)
}

// NopLoader trivially wraps paths in handles without touching storage. It is
// the default loader for tests and tooling that only needs round-tripping.
type NopLoader struct{}

func (NopLoader) Load(path string, kind Kind) (Handle, error) {
	if path == "" {
		return Handle{}, nil
	}
	return Handle{Path: path, Kind: kind}, nil
}
