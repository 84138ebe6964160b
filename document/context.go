package document

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/asset"
	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/codec"
	"github.com/sceneforge/sceneforge/resolve"
)

var ErrUnknownType = eris.New("behavior type has no catalogue entry, migration, or unambiguous short-name match")

// FallbackEvent records that a legacy type identifier was substituted with a
// current one while reading a document. Callers surface these to the user
// before persisting the repaired document.
type FallbackEvent struct {
	From string
	To   string
}

// Context carries the collaborators and per-load state of one document
// read/write operation: the catalogue, the migration table, the pending-key
// table the scene owns, the asset loader, and the fallback-tracking set.
// Create a fresh Context per load; concurrent loads each get their own, so
// tracked events never interleave.
type Context struct {
	Catalogue  *behavior.Catalogue
	Migrations *Migrations
	Pending    *resolve.PendingKeyTable
	Log        zerolog.Logger

	conv      *codec.Converter
	fallbacks []FallbackEvent
	seen      map[FallbackEvent]struct{}
}

func NewContext(
	cat *behavior.Catalogue,
	migrations *Migrations,
	pending *resolve.PendingKeyTable,
	assets asset.Loader,
	log zerolog.Logger,
) *Context {
	if migrations == nil {
		migrations = NewMigrations()
	}
	if pending == nil {
		pending = resolve.NewPendingKeyTable()
	}
	return &Context{
		Catalogue:  cat,
		Migrations: migrations,
		Pending:    pending,
		Log:        log,
		conv:       codec.NewConverter(assets, log),
		seen:       make(map[FallbackEvent]struct{}),
	}
}

// Converter returns the value conversion layer bound to this context's asset
// loader.
func (c *Context) Converter() *codec.Converter { return c.conv }

func (c *Context) recordFallback(from, to string) {
	ev := FallbackEvent{From: from, To: to}
	if _, ok := c.seen[ev]; ok {
		return
	}
	c.seen[ev] = struct{}{}
	c.fallbacks = append(c.fallbacks, ev)
}

// FallbackEvents returns a snapshot of the deduplicated fallback events
// recorded so far, in first-use order.
func (c *Context) FallbackEvents() []FallbackEvent {
	return append([]FallbackEvent(nil), c.fallbacks...)
}

// ResolveType maps a document type identifier to catalogue metadata: exact
// full-id match first, then the migration table, then short-name fallback
// (valid only while the short name is unambiguous). Either fallback path
// records a FallbackEvent.
func (c *Context) ResolveType(typeID string) (*behavior.TypeMeta, error) {
	if meta, err := c.Catalogue.ByFullID(typeID); err == nil {
		return meta, nil
	}
	if current, ok := c.Migrations.Resolve(typeID); ok {
		meta, err := c.Catalogue.ByFullID(current)
		if err != nil {
			return nil, eris.Wrapf(err, "migration for %q targets %q", typeID, current)
		}
		c.recordFallback(typeID, meta.FullID())
		return meta, nil
	}
	short := shortNameOf(typeID)
	meta, err := c.Catalogue.ByShortName(short)
	if err != nil {
		if eris.Is(err, behavior.ErrShortNameAmbiguous) {
			return nil, eris.Wrapf(ErrUnknownType,
				"%q: short name %q is ambiguous and needs a migration entry", typeID, short)
		}
		return nil, eris.Wrapf(ErrUnknownType, "%q", typeID)
	}
	c.recordFallback(typeID, meta.FullID())
	return meta, nil
}

// shortNameOf takes the trailing type name of a full identifier.
func shortNameOf(fullID string) string {
	if i := strings.LastIndexByte(fullID, '.'); i >= 0 {
		return fullID[i+1:]
	}
	return fullID
}

// NewBehavior resolves a document type identifier and constructs a fresh
// instance. Unknown types return ErrUnknownType; callers drop the behavior,
// log, and keep loading the rest of the entity.
func (c *Context) NewBehavior(typeID string) (*behavior.TypeMeta, behavior.Behavior, error) {
	meta, err := c.ResolveType(typeID)
	if err != nil {
		return nil, nil, err
	}
	return meta, meta.New(), nil
}

// ApplyProperties writes stored document values into a live behavior through
// the value conversion layer. Key-reference fields are routed into the
// pending-key table instead of the struct, so the live field stays unset
// until resolution runs. Unknown fields are schema drift and are ignored;
// per-field conversion mismatches leave the field at its default and are
// logged, never fatal.
func (c *Context) ApplyProperties(
	h resolve.Handle, meta *behavior.TypeMeta, b behavior.Behavior, props map[string]any,
) {
	for _, name := range codec.SortedKeys(props) {
		raw := props[name]
		fm, ok := meta.Field(name)
		if !ok {
			c.Log.Debug().Str("type", meta.FullID()).Str("field", name).
				Msg("ignoring unknown document field")
			continue
		}
		if fm.IsKeyRef() {
			c.storePendingKey(h, meta, fm, raw)
			continue
		}
		v, err := c.conv.ToNative(fm, raw)
		if err != nil {
			c.Log.Warn().Err(err).Str("type", meta.FullID()).Str("field", name).
				Msg("stored value does not match declared kind; field left at default")
			continue
		}
		if err := fm.Set(b, v); err != nil {
			c.Log.Warn().Err(err).Str("type", meta.FullID()).Str("field", name).
				Msg("could not write field value")
		}
	}
}

func (c *Context) storePendingKey(
	h resolve.Handle, meta *behavior.TypeMeta, fm *behavior.FieldMeta, raw any,
) {
	if raw == nil {
		return
	}
	if fm.Kind == behavior.KindList {
		items, ok := raw.([]any)
		if !ok {
			c.Log.Warn().Str("type", meta.FullID()).Str("field", fm.Name).
				Msg("stored key list is not an array; ignored")
			return
		}
		keys := make([]string, 0, len(items))
		for _, item := range items {
			key, ok := item.(string)
			if !ok {
				c.Log.Warn().Str("type", meta.FullID()).Str("field", fm.Name).
					Msg("stored key list holds a non-string entry; entry skipped")
				continue
			}
			keys = append(keys, key)
		}
		c.Pending.SetList(h, fm.Name, keys)
		return
	}
	key, ok := raw.(string)
	if !ok {
		c.Log.Warn().Str("type", meta.FullID()).Str("field", fm.Name).
			Msg("stored key is not a string; ignored")
		return
	}
	c.Pending.Set(h, fm.Name, key)
}

// ReadBehavior constructs a live behavior from its document in one step,
// using a handle the caller has already allocated for the attachment.
func (c *Context) ReadBehavior(h resolve.Handle, doc BehaviorDocument) (behavior.Behavior, error) {
	meta, b, err := c.NewBehavior(doc.Type)
	if err != nil {
		return nil, err
	}
	c.ApplyProperties(h, meta, b, doc.Properties)
	return b, nil
}

// WriteBehavior produces the portable snapshot of a live behavior. Only
// declared fields are written: hierarchy-sourced reference fields never
// appear, and key-sourced references are written as their pending (or
// previously stored) key string rather than the resolved object.
func (c *Context) WriteBehavior(h resolve.Handle, b behavior.Behavior) (BehaviorDocument, error) {
	meta, err := c.Catalogue.ByInstance(b)
	if err != nil {
		return BehaviorDocument{}, err
	}
	props := make(map[string]any)
	fields := meta.Fields()
	for i := range fields {
		fm := &fields[i]
		if fm.IsKeyRef() {
			if fm.Kind == behavior.KindList {
				if keys, ok := c.Pending.GetList(h, fm.Name); ok && len(keys) > 0 {
					props[fm.Name] = keys
				}
			} else if key, ok := c.Pending.Get(h, fm.Name); ok && key != "" {
				props[fm.Name] = key
			}
			continue
		}
		pv, err := c.conv.ToPortable(fm, fm.Get(b))
		if err != nil {
			c.Log.Warn().Err(err).Str("type", meta.FullID()).Str("field", fm.Name).
				Msg("could not serialize field; omitted")
			continue
		}
		if pv != nil {
			props[fm.Name] = pv
		}
	}
	return BehaviorDocument{Type: meta.FullID(), Properties: props}, nil
}
