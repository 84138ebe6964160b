package behavior

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/wI2L/jsondiff"
)

var ErrSchemaMismatch = eris.New("behavior schema mismatch")

// reflectSchema captures the JSON schema of a behavior type at registration
// time, for editor-side drift checks. A failure here is logged but does not
// block registration; the schema is advisory.
func reflectSchema(b Behavior, log zerolog.Logger) []byte {
	schema := jsonschema.Reflect(b)
	bz, err := schema.MarshalJSON()
	if err != nil {
		log.Warn().Err(err).Str("behavior", b.Name()).Msg("could not capture behavior schema")
		return nil
	}
	return bz
}

// Schema returns the JSON schema captured when the type was registered, or
// nil if capture failed.
func (m *TypeMeta) Schema() []byte { return m.schema }

// ValidateAgainstSchema compares a previously stored schema against the
// type's current one and returns ErrSchemaMismatch if they differ.
func (m *TypeMeta) ValidateAgainstSchema(stored []byte) error {
	if len(m.schema) == 0 || len(stored) == 0 {
		return eris.Wrapf(ErrSchemaMismatch, "behavior %q has no schema to compare", m.shortName)
	}
	patch, err := jsondiff.CompareJSON(m.schema, stored)
	if err != nil {
		return eris.Wrap(err, "comparing behavior schemas")
	}
	if patch.String() != "" {
		return eris.Wrapf(ErrSchemaMismatch, "behavior %q: %s", m.shortName, patch.String())
	}
	return nil
}
