// Package behavior defines the behavior contract and the type metadata
// catalogue. Every serializable shape decision is made exactly once, at
// registration time; document conversion and reference resolution read the
// resulting TypeMeta and never walk struct types again.
package behavior

// Behavior is one attached unit of per-entity logic/data. Implementations are
// plain structs; the Name method declares the stable short name used for
// display grouping and legacy-document fallback matching.
type Behavior interface {
	// Name returns the short name of the behavior type.
	Name() string
}

// Base carries the framework-owned per-attachment state every concrete
// behavior embeds. Its fields are lifecycle bookkeeping and are never
// serialized; the catalogue walk skips the embed entirely.
type Base struct {
	enabled bool
	started bool
}

// Enabled reports whether the behavior participates in updates.
func (b *Base) Enabled() bool { return b.enabled }

func (b *Base) SetEnabled(v bool) { b.enabled = v }

// Started reports whether the behavior has run its first update.
func (b *Base) Started() bool { return b.started }

func (b *Base) MarkStarted() { b.started = true }
