package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sceneforge/sceneforge/document"
)

func upgradeCmd() *cobra.Command {
	var mapPath string
	var write bool
	cmd := &cobra.Command{
		Use:   "upgrade <scene-file>",
		Short: "Rewrite legacy behavior type identifiers through a migration map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpgrade(args[0], mapPath, write)
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "YAML file of legacy: current type id pairs")
	cmd.Flags().BoolVar(&write, "write", false, "rewrite the scene file in place instead of printing to stdout")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}

func runUpgrade(scenePath, mapPath string, write bool) error {
	cfg := LoadConfig()

	migrations, err := readMigrationMap(mapPath)
	if err != nil {
		return err
	}
	doc, err := readSceneFile(scenePath)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	applied := rewriteTypes(doc, migrations)
	for _, ev := range applied {
		fmt.Fprintf(os.Stderr, "  %s -> %s\n", ev.From, ev.To)
	}
	if cfg.Strict && len(applied) == 0 && len(migrations) > 0 {
		return eris.New("strict mode: no migration entry matched the scene")
	}

	out, err := document.EncodeScene(doc)
	if err != nil {
		return err
	}
	if write {
		if err := os.WriteFile(scenePath, append(out, '\n'), 0o644); err != nil {
			return eris.Wrapf(err, "writing %q", scenePath)
		}
		fmt.Fprintf(os.Stderr, "rewrote %s (%d substitutions)\n", scenePath, len(applied))
		return nil
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func readMigrationMap(path string) (map[string]string, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading %q", path)
	}
	out := make(map[string]string)
	if err := yaml.Unmarshal(bz, &out); err != nil {
		return nil, eris.Wrapf(err, "parsing migration map %q", path)
	}
	for legacy, current := range out {
		if legacy == "" || current == "" {
			return nil, eris.Errorf("migration map %q has an empty entry", path)
		}
	}
	return out, nil
}

// rewriteTypes applies the map to scratch component types and prefab
// override keys, returning each distinct substitution once in the order it
// was first applied.
func rewriteTypes(doc *document.SceneDocument, migrations map[string]string) []document.FallbackEvent {
	var applied []document.FallbackEvent
	seen := make(map[string]struct{})
	note := func(from, to string) {
		if _, ok := seen[from]; ok {
			return
		}
		seen[from] = struct{}{}
		applied = append(applied, document.FallbackEvent{From: from, To: to})
	}

	for i := range doc.Entities {
		e := &doc.Entities[i]
		for j := range e.Components {
			if current, ok := migrations[e.Components[j].Type]; ok {
				note(e.Components[j].Type, current)
				e.Components[j].Type = current
			}
		}
		if len(e.Overrides) == 0 {
			continue
		}
		legacyKeys := make([]string, 0, len(e.Overrides))
		for legacy := range e.Overrides {
			if _, ok := migrations[legacy]; ok {
				legacyKeys = append(legacyKeys, legacy)
			}
		}
		sort.Strings(legacyKeys)
		for _, legacy := range legacyKeys {
			current := migrations[legacy]
			note(legacy, current)
			e.Overrides[current] = e.Overrides[legacy]
			delete(e.Overrides, legacy)
		}
	}
	return applied
}
