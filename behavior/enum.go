package behavior

import (
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

// EnumTable maps an integer-backed enum type to its symbolic names. Documents
// store enum values by name only; decode matches exactly first and falls back
// to a case-insensitive match.
type EnumTable struct {
	typ    reflect.Type
	names  map[int64]string
	values map[string]int64
	folded map[string]int64
}

// Type returns the Go type the table describes.
func (t *EnumTable) Type() reflect.Type { return t.typ }

// Name returns the symbolic name for v.
func (t *EnumTable) Name(v int64) (string, bool) {
	s, ok := t.names[v]
	return s, ok
}

// Value returns the value for name, trying an exact match before a
// case-insensitive one.
func (t *EnumTable) Value(name string) (int64, bool) {
	if v, ok := t.values[name]; ok {
		return v, true
	}
	v, ok := t.folded[strings.ToLower(name)]
	return v, ok
}

// RegisterEnum registers the symbolic names of an integer-backed enum type
// with the catalogue. Behavior fields of type T registered afterwards are
// serialized by name. Registration must happen before the behavior types that
// use T.
func RegisterEnum[T comparable](cat *Catalogue, names map[T]string) error {
	var zero T
	typ := reflect.TypeOf(zero)
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return eris.Errorf("enum type %s is not integer-backed", typ)
	}
	if _, ok := cat.enums[typ]; ok {
		return eris.Errorf("enum type %s is already registered", typ)
	}
	table := &EnumTable{
		typ:    typ,
		names:  make(map[int64]string, len(names)),
		values: make(map[string]int64, len(names)),
		folded: make(map[string]int64, len(names)),
	}
	for v, name := range names {
		if name == "" {
			return eris.Errorf("enum type %s has an empty name", typ)
		}
		if _, ok := table.values[name]; ok {
			return eris.Errorf("enum type %s declares name %q twice", typ, name)
		}
		iv := reflect.ValueOf(v).Convert(reflect.TypeOf(int64(0))).Int()
		table.names[iv] = name
		table.values[name] = iv
		table.folded[strings.ToLower(name)] = iv
	}
	cat.enums[typ] = table
	return nil
}

// MustRegisterEnum is RegisterEnum that panics on error. Enum tables are
// wired at startup, so a failure is a programming error.
func MustRegisterEnum[T comparable](cat *Catalogue, names map[T]string) {
	if err := RegisterEnum(cat, names); err != nil {
		panic(err)
	}
}
