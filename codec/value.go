package codec

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/asset"
	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/vmath"
)

// Converter performs bidirectional conversion between native field values and
// portable document values, per a field's declared kind. Both directions are
// total: a shape mismatch yields the kind's zero value plus an error carrying
// enough context for the caller to log which field produced it; nothing
// panics past this boundary.
type Converter struct {
	assets asset.Loader
	log    zerolog.Logger
}

func NewConverter(assets asset.Loader, log zerolog.Logger) *Converter {
	if assets == nil {
		assets = asset.NopLoader{}
	}
	return &Converter{assets: assets, log: log}
}

// ToPortable converts a live field value into a document value: vectors to
// fixed-length arrays, enums to symbolic names, asset handles to path
// strings, containers element by element.
func (c *Converter) ToPortable(meta *behavior.FieldMeta, native any) (any, error) {
	switch meta.Kind {
	case behavior.KindList:
		if native == nil {
			return nil, nil
		}
		rv := reflect.ValueOf(native)
		if rv.Kind() != reflect.Slice {
			return nil, eris.Errorf("expected a slice for list field %q, got %T", meta.Name, native)
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			pv, err := c.portableScalar(meta.Elem, meta, rv.Index(i).Interface())
			if err != nil {
				return nil, eris.Wrapf(err, "list field %q element %d", meta.Name, i)
			}
			out[i] = pv
		}
		return out, nil
	case behavior.KindMap:
		if native == nil {
			return nil, nil
		}
		rv := reflect.ValueOf(native)
		if rv.Kind() != reflect.Map {
			return nil, eris.Errorf("expected a map for map field %q, got %T", meta.Name, native)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := portableMapKey(meta.Key, iter.Key())
			if err != nil {
				return nil, eris.Wrapf(err, "map field %q", meta.Name)
			}
			pv, err := c.portableScalar(meta.Elem, meta, iter.Value().Interface())
			if err != nil {
				return nil, eris.Wrapf(err, "map field %q key %q", meta.Name, key)
			}
			out[key] = pv
		}
		return out, nil
	default:
		return c.portableScalar(meta.Kind, meta, native)
	}
}

func (c *Converter) portableScalar(kind behavior.Kind, meta *behavior.FieldMeta, v any) (any, error) {
	switch kind {
	case behavior.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, eris.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case behavior.KindInt:
		return intOf(v)
	case behavior.KindFloat:
		return floatOf(v)
	case behavior.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, eris.Errorf("expected string, got %T", v)
		}
		return s, nil
	case behavior.KindVec2:
		vec, ok := v.(vmath.Vec2)
		if !ok {
			return nil, eris.Errorf("expected vec2, got %T", v)
		}
		return []float64{vec.X, vec.Y}, nil
	case behavior.KindVec3:
		vec, ok := v.(vmath.Vec3)
		if !ok {
			return nil, eris.Errorf("expected vec3, got %T", v)
		}
		return []float64{vec.X, vec.Y, vec.Z}, nil
	case behavior.KindVec4:
		vec, ok := v.(vmath.Vec4)
		if !ok {
			return nil, eris.Errorf("expected vec4, got %T", v)
		}
		return []float64{vec.X, vec.Y, vec.Z, vec.W}, nil
	case behavior.KindEnum:
		iv, err := intOf(v)
		if err != nil {
			return nil, err
		}
		name, ok := meta.Enum.Name(iv)
		if !ok {
			return nil, eris.Errorf("enum value %d of %s has no symbolic name", iv, meta.Enum.Type())
		}
		return name, nil
	case behavior.KindAsset:
		h, ok := v.(asset.Handle)
		if !ok {
			return nil, eris.Errorf("expected asset handle, got %T", v)
		}
		return h.Path, nil
	default:
		return nil, eris.Errorf("kind %s is not portable", kind)
	}
}

// ToNative converts a document value into the canonical native value for a
// field's declared kind: bool, int64, float64, string, vmath vectors,
// asset.Handle, []any and map[string]any / map[int64]any for containers.
// FieldMeta.Set narrows canonical values to the concrete field type.
func (c *Converter) ToNative(meta *behavior.FieldMeta, portable any) (any, error) {
	switch meta.Kind {
	case behavior.KindList:
		if portable == nil {
			return nil, nil
		}
		items, ok := portable.([]any)
		if !ok {
			return nil, eris.Errorf("expected an array for list field %q, got %T", meta.Name, portable)
		}
		out := make([]any, len(items))
		for i, item := range items {
			nv, err := c.nativeScalar(meta.Elem, meta, item)
			if err != nil {
				return nil, eris.Wrapf(err, "list field %q element %d", meta.Name, i)
			}
			out[i] = nv
		}
		return out, nil
	case behavior.KindMap:
		if portable == nil {
			return nil, nil
		}
		items, ok := portable.(map[string]any)
		if !ok {
			return nil, eris.Errorf("expected an object for map field %q, got %T", meta.Name, portable)
		}
		if meta.Key == behavior.KindInt {
			out := make(map[int64]any, len(items))
			for key, item := range items {
				ik, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return nil, eris.Wrapf(err, "map field %q key %q", meta.Name, key)
				}
				nv, err := c.nativeScalar(meta.Elem, meta, item)
				if err != nil {
					return nil, eris.Wrapf(err, "map field %q key %q", meta.Name, key)
				}
				out[ik] = nv
			}
			return out, nil
		}
		out := make(map[string]any, len(items))
		for key, item := range items {
			nv, err := c.nativeScalar(meta.Elem, meta, item)
			if err != nil {
				return nil, eris.Wrapf(err, "map field %q key %q", meta.Name, key)
			}
			out[key] = nv
		}
		return out, nil
	default:
		return c.nativeScalar(meta.Kind, meta, portable)
	}
}

func (c *Converter) nativeScalar(kind behavior.Kind, meta *behavior.FieldMeta, v any) (any, error) {
	switch kind {
	case behavior.KindBool:
		b, ok := v.(bool)
		if !ok {
			return false, eris.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case behavior.KindInt:
		// Document numbers arrive as floating point even for integer fields.
		return intOf(v)
	case behavior.KindFloat:
		return floatOf(v)
	case behavior.KindString:
		s, ok := v.(string)
		if !ok {
			return "", eris.Errorf("expected string, got %T", v)
		}
		return s, nil
	case behavior.KindVec2:
		parts, err := vectorParts(v, 2)
		if err != nil {
			return vmath.Vec2{}, err
		}
		return vmath.Vec2{X: parts[0], Y: parts[1]}, nil
	case behavior.KindVec3:
		parts, err := vectorParts(v, 3)
		if err != nil {
			return vmath.Vec3{}, err
		}
		return vmath.Vec3{X: parts[0], Y: parts[1], Z: parts[2]}, nil
	case behavior.KindVec4:
		parts, err := vectorParts(v, 4)
		if err != nil {
			return vmath.Vec4{}, err
		}
		return vmath.Vec4{X: parts[0], Y: parts[1], Z: parts[2], W: parts[3]}, nil
	case behavior.KindEnum:
		name, ok := v.(string)
		if !ok {
			return int64(0), eris.Errorf("expected enum name string, got %T", v)
		}
		iv, ok := meta.Enum.Value(name)
		if !ok {
			return int64(0), eris.Errorf("%s has no enum value named %q", meta.Enum.Type(), name)
		}
		return iv, nil
	case behavior.KindAsset:
		path, ok := v.(string)
		if !ok {
			return asset.Handle{}, eris.Errorf("expected asset path string, got %T", v)
		}
		if path == "" {
			return asset.Handle{}, nil
		}
		h, err := c.assets.Load(path, meta.AssetKind)
		if err != nil {
			return asset.Handle{}, eris.Wrapf(err, "loading asset %q", path)
		}
		return h, nil
	default:
		return nil, eris.Errorf("kind %s is not decodable", kind)
	}
}

// vectorParts accepts the fixed-length array encoding and, for backward
// compatibility, the older object-with-named-fields form.
func vectorParts(v any, n int) ([]float64, error) {
	switch tv := v.(type) {
	case []any:
		if len(tv) != n {
			return nil, eris.Errorf("expected %d vector components, got %d", n, len(tv))
		}
		out := make([]float64, n)
		for i, item := range tv {
			f, err := floatOf(item)
			if err != nil {
				return nil, eris.Wrapf(err, "vector component %d", i)
			}
			out[i] = f
		}
		return out, nil
	case map[string]any:
		out := make([]float64, n)
		for i, name := range []string{"x", "y", "z", "w"}[:n] {
			raw, ok := tv[name]
			if !ok {
				return nil, eris.Errorf("vector object is missing component %q", name)
			}
			f, err := floatOf(raw)
			if err != nil {
				return nil, eris.Wrapf(err, "vector component %q", name)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, eris.Errorf("expected a vector array or object, got %T", v)
	}
}

// portableMapKey renders a native map key as the document's string key.
func portableMapKey(kind behavior.Kind, key reflect.Value) (string, error) {
	switch kind {
	case behavior.KindString:
		return key.String(), nil
	case behavior.KindInt:
		switch key.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(key.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(key.Uint(), 10), nil
		}
		return "", eris.Errorf("expected an integer map key, got %s", key.Type())
	default:
		return "", eris.Errorf("map key kind %s is not portable", kind)
	}
}

func intOf(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	default:
		return 0, eris.Errorf("expected a number, got %T", v)
	}
}

func floatOf(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, eris.Errorf("expected a number, got %T", v)
	}
}

// SortedKeys returns a map's keys in sorted order, for deterministic
// diagnostics and snapshots.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
