package behavior

import (
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

// Source declares how a reference field is filled in after the entity graph
// exists. Hierarchy sources are recomputed from live graph position on every
// load and are never serialized; Key sources round-trip through documents as
// plain strings.
type Source uint8

const (
	SourceInvalid Source = iota
	// SourceSelf resolves against behaviors attached to the same entity.
	SourceSelf
	// SourceParent resolves against the immediate ancestor entity.
	SourceParent
	// SourceChildren resolves against immediate descendants only.
	SourceChildren
	// SourceChildrenRecursive resolves against the full descendant subtree.
	SourceChildrenRecursive
	// SourceKey resolves through a caller-registered name, independent of
	// hierarchy.
	SourceKey
)

func (s Source) String() string {
	switch s {
	case SourceSelf:
		return "self"
	case SourceParent:
		return "parent"
	case SourceChildren:
		return "children"
	case SourceChildrenRecursive:
		return "childrenRecursive"
	case SourceKey:
		return "key"
	default:
		return "invalid"
	}
}

// parseRefTag parses a `ref:"source[,required]"` struct tag.
func parseRefTag(tag string) (Source, bool, error) {
	parts := strings.Split(tag, ",")
	var src Source
	switch parts[0] {
	case "self":
		src = SourceSelf
	case "parent":
		src = SourceParent
	case "children":
		src = SourceChildren
	case "childrenRecursive":
		src = SourceChildrenRecursive
	case "key":
		src = SourceKey
	default:
		return SourceInvalid, false, eris.Errorf("unknown reference source %q", parts[0])
	}
	required := false
	for _, p := range parts[1:] {
		switch p {
		case "required":
			required = true
		case "":
		default:
			return SourceInvalid, false, eris.Errorf("unknown reference tag option %q", p)
		}
	}
	return src, required, nil
}

// Slot is the untyped view of a single-valued reference field. The resolver
// binds candidates through it without knowing the concrete target type.
type Slot interface {
	TargetType() reflect.Type
	TargetName() string
	IsSet() bool
	Bind(Behavior) error
}

// ListSlot is the untyped view of a list-valued reference field.
type ListSlot interface {
	TargetType() reflect.Type
	TargetName() string
	Len() int
	Bind(Behavior) error
}

// Ref is a non-owning reference to a behavior of type T elsewhere in the
// graph. The zero value is an empty reference.
type Ref[T Behavior] struct {
	target *T
}

// Get returns the referenced behavior, or nil if unresolved.
func (r Ref[T]) Get() *T { return r.target }

func (r Ref[T]) IsSet() bool { return r.target != nil }

func (r *Ref[T]) Set(t *T) { r.target = t }

func (r *Ref[T]) Clear() { r.target = nil }

// TargetType returns the struct type of the referenced behavior.
func (r Ref[T]) TargetType() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

// TargetName returns the short name of the referenced behavior type.
func (r Ref[T]) TargetName() string {
	var zero T
	return zero.Name()
}

// Bind stores the candidate in the reference. The candidate's dynamic type
// must be *T.
func (r *Ref[T]) Bind(b Behavior) error {
	if b == nil {
		r.target = nil
		return nil
	}
	t, ok := any(b).(*T)
	if !ok {
		return eris.Errorf("cannot bind %T to reference of %s", b, r.TargetName())
	}
	r.target = t
	return nil
}

// RefList is a non-owning list of references to behaviors of type T. The zero
// value is an empty list.
type RefList[T Behavior] struct {
	targets []*T
}

// All returns a copy of the resolved targets.
func (r RefList[T]) All() []*T {
	out := make([]*T, len(r.targets))
	copy(out, r.targets)
	return out
}

func (r RefList[T]) Len() int { return len(r.targets) }

// At returns the i-th target.
func (r RefList[T]) At(i int) *T { return r.targets[i] }

func (r *RefList[T]) Append(t *T) { r.targets = append(r.targets, t) }

func (r *RefList[T]) Clear() { r.targets = nil }

func (r RefList[T]) TargetType() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

func (r RefList[T]) TargetName() string {
	var zero T
	return zero.Name()
}

// Bind appends the candidate to the list. The candidate's dynamic type must
// be *T.
func (r *RefList[T]) Bind(b Behavior) error {
	t, ok := any(b).(*T)
	if !ok {
		return eris.Errorf("cannot bind %T to reference list of %s", b, r.TargetName())
	}
	r.targets = append(r.targets, t)
	return nil
}
