// Package log holds the structured-event helpers shared by the engine and
// the CLI: catalogue and scene summaries as zerolog arrays of dicts, plus
// sub-logger constructors for scoped diagnostics.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneforge/behavior"
	"github.com/sceneforge/sceneforge/document"
)

func loadTypeIntoArrayLogger(meta *behavior.TypeMeta, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Str("full_id", meta.FullID())
	dictLogger = dictLogger.Str("short_name", meta.ShortName())
	if meta.Category() != "" {
		dictLogger = dictLogger.Str("category", meta.Category())
	}
	return arrayLogger.Dict(dictLogger)
}

func loadTypesToEvent(zeroLoggerEvent *zerolog.Event, cat *behavior.Catalogue) *zerolog.Event {
	types := cat.Types()
	zeroLoggerEvent.Int("total_types", len(types))
	arrayLogger := zerolog.Arr()
	for _, meta := range types {
		arrayLogger = loadTypeIntoArrayLogger(meta, arrayLogger)
	}
	return zeroLoggerEvent.Array("types", arrayLogger)
}

func loadCollisionsToEvent(zeroLoggerEvent *zerolog.Event, cat *behavior.Catalogue) *zerolog.Event {
	collisions := cat.Collisions()
	shorts := make([]string, 0, len(collisions))
	for short := range collisions {
		shorts = append(shorts, short)
	}
	sort.Strings(shorts)
	zeroLoggerEvent.Int("total_collisions", len(shorts))
	arrayLogger := zerolog.Arr()
	for _, short := range shorts {
		arrayLogger = arrayLogger.Str(short)
	}
	return zeroLoggerEvent.Array("collisions", arrayLogger)
}

// Catalogue logs every registered behavior type plus the short names that
// have become ambiguous.
func Catalogue(logger *zerolog.Logger, cat *behavior.Catalogue, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadTypesToEvent(zeroLoggerEvent, cat)
	zeroLoggerEvent = loadCollisionsToEvent(zeroLoggerEvent, cat)
	zeroLoggerEvent.Send()
}

// Fallbacks logs the legacy-identifier substitutions recorded during one
// document load, in first-use order.
func Fallbacks(logger *zerolog.Logger, events []document.FallbackEvent, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Int("total_fallbacks", len(events))
	arrayLogger := zerolog.Arr()
	for _, ev := range events {
		dictLogger := zerolog.Dict()
		dictLogger = dictLogger.Str("from", ev.From)
		dictLogger = dictLogger.Str("to", ev.To)
		arrayLogger = arrayLogger.Dict(dictLogger)
	}
	zeroLoggerEvent.Array("fallbacks", arrayLogger)
	zeroLoggerEvent.Send()
}

// SceneDocument logs the shape of a parsed scene document.
func SceneDocument(logger *zerolog.Logger, doc *document.SceneDocument, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Str("scene", doc.Name)
	zeroLoggerEvent.Int("version", doc.Version)
	zeroLoggerEvent.Int("total_entities", len(doc.Entities))
	arrayLogger := zerolog.Arr()
	for i := range doc.Entities {
		e := &doc.Entities[i]
		dictLogger := zerolog.Dict()
		dictLogger = dictLogger.Str("id", e.ID)
		if e.PrefabID != "" {
			dictLogger = dictLogger.Str("prefab", e.PrefabID)
		} else {
			dictLogger = dictLogger.Int("behaviors", len(e.Components))
		}
		arrayLogger = arrayLogger.Dict(dictLogger)
	}
	zeroLoggerEvent.Array("entities", arrayLogger)
	zeroLoggerEvent.Send()
}

// CreateSceneLogger creates a sub logger with the entry {"scene": sceneName}.
func CreateSceneLogger(logger *zerolog.Logger, sceneName string) *zerolog.Logger {
	newLogger := logger.With().Str("scene", sceneName).Logger()
	return &newLogger
}

// CreateLoadLogger creates a sub logger keyed by a load id, so the events of
// one document load can be followed end to end.
func CreateLoadLogger(logger *zerolog.Logger, loadID string) *zerolog.Logger {
	newLogger := logger.With().Str("load_id", loadID).Logger()
	return &newLogger
}
