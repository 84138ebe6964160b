package behavior

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/sceneforge/sceneforge/asset"
)

// FieldMeta describes one serializable field of a behavior type. Key-sourced
// reference fields also appear here with a string (or string-list) kind, since
// they round-trip through documents as text; for those IsKeyRef reports true
// and Get/Set must not be used — the stored key lives in the pending-key
// table, never in the struct.
type FieldMeta struct {
	Name      string
	Kind      Kind
	Elem      Kind // list element / map value kind
	Key       Kind // map key kind
	AssetKind asset.Kind
	Enum      *EnumTable

	index  []int
	ftype  reflect.Type
	keyRef bool
}

// IsKeyRef reports whether this field mirrors a Key-sourced reference.
func (f *FieldMeta) IsKeyRef() bool { return f.keyRef }

// Type returns the Go type of the struct field. Nil for key-ref mirrors.
func (f *FieldMeta) Type() reflect.Type { return f.ftype }

// Get reads the field's native value from a live behavior.
func (f *FieldMeta) Get(b Behavior) any {
	return reflect.ValueOf(b).Elem().FieldByIndex(f.index).Interface()
}

// Set writes a canonical native value (as produced by the value conversion
// layer) into a live behavior, converting to the declared field type.
func (f *FieldMeta) Set(b Behavior, v any) error {
	fv := reflect.ValueOf(b).Elem().FieldByIndex(f.index)
	if err := assign(fv, v); err != nil {
		return eris.Wrapf(err, "field %q", f.Name)
	}
	return nil
}

func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	rt, dt := rv.Type(), dst.Type()
	switch {
	case rt.AssignableTo(dt):
		dst.Set(rv)
	case numericKind(rt.Kind()) && numericKind(dt.Kind()):
		dst.Set(rv.Convert(dt))
	case dst.Kind() == reflect.Slice:
		items, ok := v.([]any)
		if !ok {
			return eris.Errorf("cannot assign %T to %s", v, dt)
		}
		out := reflect.MakeSlice(dt, len(items), len(items))
		for i := range items {
			if err := assign(out.Index(i), items[i]); err != nil {
				return err
			}
		}
		dst.Set(out)
	case dst.Kind() == reflect.Map:
		if rv.Kind() != reflect.Map {
			return eris.Errorf("cannot assign %T to %s", v, dt)
		}
		out := reflect.MakeMapWithSize(dt, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := reflect.New(dt.Key()).Elem()
			if err := assign(key, iter.Key().Interface()); err != nil {
				return err
			}
			val := reflect.New(dt.Elem()).Elem()
			if err := assign(val, iter.Value().Interface()); err != nil {
				return err
			}
			out.SetMapIndex(key, val)
		}
		dst.Set(out)
	default:
		return eris.Errorf("cannot assign %T to %s", v, dt)
	}
	return nil
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// ReferenceMeta describes one reference field of a behavior type. Hierarchy
// sources are resolved from live graph position; Key sources through the
// pending-key table and named registry.
type ReferenceMeta struct {
	Name       string
	Source     Source
	Required   bool
	IsList     bool
	TargetType reflect.Type // struct type of the referenced behavior
	TargetName string

	index []int
}

// Slot returns the untyped view of the field on a live behavior. Only valid
// when IsList is false.
func (r *ReferenceMeta) Slot(b Behavior) Slot {
	return reflect.ValueOf(b).Elem().FieldByIndex(r.index).Addr().Interface().(Slot)
}

// List returns the untyped list view of the field on a live behavior. Only
// valid when IsList is true.
func (r *ReferenceMeta) List(b Behavior) ListSlot {
	return reflect.ValueOf(b).Elem().FieldByIndex(r.index).Addr().Interface().(ListSlot)
}

// Matches reports whether the candidate behavior is of the referenced type.
func (r *ReferenceMeta) Matches(b Behavior) bool {
	return reflect.TypeOf(b) == reflect.PointerTo(r.TargetType)
}

// TypeMeta is the catalogue entry for one behavior type: identity, display
// grouping, serializable fields, reference fields and a constructor.
type TypeMeta struct {
	fullID      string
	shortName   string
	displayName string
	category    string
	typ         reflect.Type
	ctor        func() Behavior
	fields      []FieldMeta
	refs        []ReferenceMeta
	fieldIndex  map[string]int
	schema      []byte
}

// FullID returns the stable full type identifier (package path + type name).
func (m *TypeMeta) FullID() string { return m.fullID }

// ShortName returns the short name declared by Behavior.Name.
func (m *TypeMeta) ShortName() string { return m.shortName }

func (m *TypeMeta) DisplayName() string { return m.displayName }

func (m *TypeMeta) Category() string { return m.category }

// Type returns the behavior's struct type.
func (m *TypeMeta) Type() reflect.Type { return m.typ }

// New constructs a fresh zero-valued instance of the behavior.
func (m *TypeMeta) New() Behavior { return m.ctor() }

// Fields returns the serializable fields in declaration order, base-type
// fields first. The slice must not be mutated.
func (m *TypeMeta) Fields() []FieldMeta { return m.fields }

// Field looks up a serializable field by document name.
func (m *TypeMeta) Field(name string) (*FieldMeta, bool) {
	i, ok := m.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return &m.fields[i], true
}

// References returns the reference fields in declaration order. The slice
// must not be mutated.
func (m *TypeMeta) References() []ReferenceMeta { return m.refs }

func (m *TypeMeta) String() string { return m.shortName }
