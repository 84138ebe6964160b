package behavior

import (
	"reflect"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/asset"
	"github.com/sceneforge/sceneforge/vmath"
)

var (
	ErrNotRegistered      = eris.New("behavior type not registered")
	ErrShortNameAmbiguous = eris.New("behavior short name is ambiguous")
	ErrInvalidType        = eris.New("behavior type cannot be registered")
)

// Catalogue holds the metadata for every registered behavior type. It is
// built once at startup by a sequence of Register calls and injected into
// every consumer; hot-reload workflows build a fresh catalogue and swap it,
// never mutate one that is in use.
type Catalogue struct {
	log       zerolog.Logger
	byFullID  map[string]*TypeMeta
	byShort   map[string]*TypeMeta
	ambiguous map[string][]string
	enums     map[reflect.Type]*EnumTable
}

func NewCatalogue(log zerolog.Logger) *Catalogue {
	return &Catalogue{
		log:       log,
		byFullID:  make(map[string]*TypeMeta),
		byShort:   make(map[string]*TypeMeta),
		ambiguous: make(map[string][]string),
		enums:     make(map[reflect.Type]*EnumTable),
	}
}

// Option augments the registration of a behavior type.
type Option[T Behavior] func(m *TypeMeta)

// WithCategory assigns the display category of the type. Unset types land in
// "other".
func WithCategory[T Behavior](category string) Option[T] {
	return func(m *TypeMeta) { m.category = category }
}

// WithDisplayName overrides the display name, which defaults to the short
// name.
func WithDisplayName[T Behavior](name string) Option[T] {
	return func(m *TypeMeta) { m.displayName = name }
}

// FullIDOf returns the stable full identifier for a behavior type, derived
// from its package path and type name.
func FullIDOf(b Behavior) string {
	t := reflect.TypeOf(b)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return fullIDOfType(t)
}

func fullIDOfType(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// Register adds behavior type T to the catalogue, walking its struct shape
// once to build the TypeMeta. Registering the same type again is a no-op.
// Types that cannot be registered (non-struct, unsupported field types,
// malformed reference tags) are excluded and the error is both logged and
// returned.
func Register[T Behavior](cat *Catalogue, opts ...Option[T]) error {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Struct {
		err := eris.Wrapf(ErrInvalidType, "%v is not a constructible struct type", typ)
		cat.log.Error().Err(err).Msg("behavior registration rejected")
		return err
	}
	fullID := fullIDOfType(typ)
	if _, ok := cat.byFullID[fullID]; ok {
		return nil
	}

	meta := &TypeMeta{
		fullID:      fullID,
		shortName:   zero.Name(),
		displayName: zero.Name(),
		category:    "other",
		typ:         typ,
		ctor: func() Behavior {
			b := any(new(T)).(Behavior)
			// Fresh behaviors start enabled; documents and callers opt out.
			if e, ok := b.(interface{ SetEnabled(bool) }); ok {
				e.SetEnabled(true)
			}
			return b
		},
		fieldIndex: make(map[string]int),
	}
	for _, opt := range opts {
		opt(meta)
	}
	if err := cat.buildMembers(meta, typ, nil); err != nil {
		err = eris.Wrapf(err, "behavior %q", fullID)
		cat.log.Error().Err(err).Msg("behavior registration rejected")
		return err
	}
	for i := range meta.fields {
		meta.fieldIndex[meta.fields[i].Name] = i
	}
	meta.schema = reflectSchema(zero, cat.log)

	cat.index(meta)
	return nil
}

// MustRegister is Register that panics on error. Catalogue construction
// happens at startup, so a failure is a programming error.
func MustRegister[T Behavior](cat *Catalogue, opts ...Option[T]) {
	if err := Register(cat, opts...); err != nil {
		panic(err)
	}
}

func (c *Catalogue) index(meta *TypeMeta) {
	c.byFullID[meta.fullID] = meta
	short := meta.shortName
	if ids, ok := c.ambiguous[short]; ok {
		c.ambiguous[short] = append(ids, meta.fullID)
		c.log.Error().
			Str("short_name", short).
			Str("full_id", meta.fullID).
			Msg("behavior short name collision; short-name fallback stays disabled for this name")
		return
	}
	if other, ok := c.byShort[short]; ok {
		c.ambiguous[short] = []string{other.fullID, meta.fullID}
		delete(c.byShort, short)
		c.log.Error().
			Str("short_name", short).
			Str("existing", other.fullID).
			Str("adding", meta.fullID).
			Msg("behavior short name collision; short-name fallback disabled for this name")
		return
	}
	c.byShort[short] = meta
}

var (
	baseType  = reflect.TypeOf(Base{})
	vec2Type  = reflect.TypeOf(vmath.Vec2{})
	vec3Type  = reflect.TypeOf(vmath.Vec3{})
	vec4Type  = reflect.TypeOf(vmath.Vec4{})
	assetType = reflect.TypeOf(asset.Handle{})
	slotType  = reflect.TypeOf((*Slot)(nil)).Elem()
	listType  = reflect.TypeOf((*ListSlot)(nil)).Elem()
)

// buildMembers walks typ's fields into meta. Embedded structs are walked in
// place so base-type fields keep their position ahead of the embedding type's
// own fields, giving a stable field order across the inheritance chain.
func (c *Catalogue) buildMembers(meta *TypeMeta, typ reflect.Type, prefix []int) error {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if f.Anonymous {
			if f.Type == baseType {
				// Framework-owned lifecycle state, never serialized.
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				if err := c.buildMembers(meta, f.Type, index); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("scene")
		if tag == "-" {
			continue
		}
		name := f.Name
		if tag != "" {
			name = tag
		}

		ptr := reflect.PointerTo(f.Type)
		isSlot := ptr.Implements(slotType)
		isListSlot := ptr.Implements(listType)
		refTag, hasRefTag := f.Tag.Lookup("ref")
		switch {
		case isSlot || isListSlot:
			if !hasRefTag {
				return eris.Errorf("reference field %q is missing its ref tag", f.Name)
			}
			if err := c.buildReference(meta, f, index, name, refTag, isListSlot); err != nil {
				return err
			}
		case hasRefTag:
			return eris.Errorf("field %q carries a ref tag but is not a Ref or RefList", f.Name)
		default:
			fm, err := c.buildField(f, index, name)
			if err != nil {
				return err
			}
			meta.fields = append(meta.fields, fm)
		}
	}
	return nil
}

func (c *Catalogue) buildReference(
	meta *TypeMeta, f reflect.StructField, index []int, name, refTag string, isList bool,
) error {
	source, required, err := parseRefTag(refTag)
	if err != nil {
		return eris.Wrapf(err, "reference field %q", f.Name)
	}
	zero := reflect.New(f.Type).Interface()
	var targetType reflect.Type
	var targetName string
	if isList {
		ls := zero.(ListSlot)
		targetType, targetName = ls.TargetType(), ls.TargetName()
	} else {
		s := zero.(Slot)
		targetType, targetName = s.TargetType(), s.TargetName()
	}
	meta.refs = append(meta.refs, ReferenceMeta{
		Name:       name,
		Source:     source,
		Required:   required,
		IsList:     isList,
		TargetType: targetType,
		TargetName: targetName,
		index:      index,
	})
	if source == SourceKey {
		// Key references round-trip through documents as text, so they get a
		// string-shaped field entry with no backing struct field.
		fm := FieldMeta{Name: name, Kind: KindString, keyRef: true}
		if isList {
			fm.Kind, fm.Elem = KindList, KindString
		}
		meta.fields = append(meta.fields, fm)
	}
	return nil
}

func (c *Catalogue) buildField(f reflect.StructField, index []int, name string) (FieldMeta, error) {
	fm := FieldMeta{Name: name, index: index, ftype: f.Type}
	if tag, ok := f.Tag.Lookup("asset"); ok {
		fm.AssetKind = asset.ParseKind(tag)
	}
	switch f.Type.Kind() {
	case reflect.Slice:
		elem, table, err := c.scalarKindOf(f.Type.Elem())
		if err != nil {
			return fm, eris.Wrapf(err, "list field %q", f.Name)
		}
		fm.Kind, fm.Elem, fm.Enum = KindList, elem, table
	case reflect.Map:
		key, _, err := c.scalarKindOf(f.Type.Key())
		if err != nil || (key != KindString && key != KindInt) {
			return fm, eris.Errorf("map field %q must have string or integer keys", f.Name)
		}
		val, table, err := c.scalarKindOf(f.Type.Elem())
		if err != nil {
			return fm, eris.Wrapf(err, "map field %q", f.Name)
		}
		fm.Kind, fm.Key, fm.Elem, fm.Enum = KindMap, key, val, table
	default:
		kind, table, err := c.scalarKindOf(f.Type)
		if err != nil {
			return fm, eris.Wrapf(err, "field %q", f.Name)
		}
		fm.Kind, fm.Enum = kind, table
	}
	return fm, nil
}

// scalarKindOf classifies a non-container type. Registered enum types win
// over their underlying integer kind.
func (c *Catalogue) scalarKindOf(t reflect.Type) (Kind, *EnumTable, error) {
	switch t {
	case vec2Type:
		return KindVec2, nil, nil
	case vec3Type:
		return KindVec3, nil, nil
	case vec4Type:
		return KindVec4, nil, nil
	case assetType:
		return KindAsset, nil, nil
	}
	if table, ok := c.enums[t]; ok {
		return KindEnum, table, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool, nil, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, nil, nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, nil, nil
	case reflect.String:
		return KindString, nil, nil
	default:
		return KindInvalid, nil, eris.Errorf("unsupported value type %s", t)
	}
}

// ByFullID looks a type up by its stable full identifier.
func (c *Catalogue) ByFullID(id string) (*TypeMeta, error) {
	m, ok := c.byFullID[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "full id %q", id)
	}
	return m, nil
}

// ByShortName looks a type up by its short name. Names involved in a
// collision return ErrShortNameAmbiguous; they need an explicit migration
// entry instead.
func (c *Catalogue) ByShortName(name string) (*TypeMeta, error) {
	if ids, ok := c.ambiguous[name]; ok {
		return nil, eris.Wrapf(ErrShortNameAmbiguous, "short name %q is claimed by %v", name, ids)
	}
	m, ok := c.byShort[name]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "short name %q", name)
	}
	return m, nil
}

// ByInstance looks up the metadata for a live behavior instance.
func (c *Catalogue) ByInstance(b Behavior) (*TypeMeta, error) {
	return c.ByFullID(FullIDOf(b))
}

// Types returns every registered type, sorted by full identifier.
func (c *Catalogue) Types() []*TypeMeta {
	out := make([]*TypeMeta, 0, len(c.byFullID))
	for _, m := range c.byFullID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].fullID < out[j].fullID })
	return out
}

// Collisions returns the short names claimed by more than one type, mapped to
// the full identifiers involved.
func (c *Catalogue) Collisions() map[string][]string {
	out := make(map[string][]string, len(c.ambiguous))
	for short, ids := range c.ambiguous {
		out[short] = append([]string(nil), ids...)
	}
	return out
}

// IsShortNameAmbiguous reports whether short-name fallback is disabled for
// the given name.
func (c *Catalogue) IsShortNameAmbiguous(name string) bool {
	_, ok := c.ambiguous[name]
	return ok
}

// Category is a display grouping of behavior types.
type Category struct {
	Name  string
	Types []*TypeMeta
}

// Categories groups registered types by category tag: "ui" first, "other"
// last, everything else alphabetical; types within a category sort by short
// name.
func (c *Catalogue) Categories() []Category {
	byName := make(map[string][]*TypeMeta)
	for _, m := range c.byFullID {
		byName[m.category] = append(byName[m.category], m)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return categoryRank(names[i]) < categoryRank(names[j]) ||
			(categoryRank(names[i]) == categoryRank(names[j]) && names[i] < names[j])
	})
	out := make([]Category, 0, len(names))
	for _, name := range names {
		types := byName[name]
		sort.Slice(types, func(i, j int) bool {
			if types[i].shortName != types[j].shortName {
				return types[i].shortName < types[j].shortName
			}
			return types[i].fullID < types[j].fullID
		})
		out = append(out, Category{Name: name, Types: types})
	}
	return out
}

func categoryRank(name string) int {
	switch name {
	case "ui":
		return 0
	case "other":
		return 2
	default:
		return 1
	}
}
