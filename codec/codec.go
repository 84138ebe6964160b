// Package codec converts between native behavior field values and the
// portable document value tree. Document bytes themselves go through
// goccy/go-json.
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Decode unmarshals document bytes into T.
func Decode[T any](bz []byte) (T, error) {
	out := new(T)
	if err := json.Unmarshal(bz, out); err != nil {
		return *out, eris.Wrap(err, "decoding document")
	}
	return *out, nil
}

// Encode marshals a document value to bytes.
func Encode(v any) ([]byte, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "encoding document")
	}
	return bz, nil
}

// EncodeIndent marshals a document value to human-diffable bytes.
func EncodeIndent(v any) ([]byte, error) {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "encoding document")
	}
	return bz, nil
}

// Canonical round-trips a value through the document encoding, normalizing
// typed native values (int32, vmath vectors, typed slices) into the plain
// tree shapes a decoded document would contain. The prefab diff relies on
// this so live and template values compare structurally.
func Canonical(v any) (any, error) {
	bz, err := Encode(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(bz, &out); err != nil {
		return nil, eris.Wrap(err, "decoding document")
	}
	return out, nil
}
