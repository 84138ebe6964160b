package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sceneforge/sceneforge/document"
	"github.com/sceneforge/sceneforge/log"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene-file>",
		Short: "Check a scene document's structural invariants",
		Long: "Check a scene document's structural invariants: format version, " +
			"duplicate ids, dangling or cyclic parents, and mixed entity forms.\n" +
			"Type identifiers are not checked here; use upgrade to rewrite legacy types.",
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()
	logger := cfg.Logger()

	doc, err := readSceneFile(args[0])
	if err != nil {
		return err
	}

	if err := doc.Validate(); err != nil {
		fmt.Fprintf(os.Stdout, "invalid: %s\n", eris.ToString(err, false))
		return eris.New("validation failed")
	}

	log.SceneDocument(&logger, doc, cfg.logDetailLevel())
	scratch, prefabs := 0, 0
	for i := range doc.Entities {
		if doc.Entities[i].IsPrefabInstance() {
			prefabs++
		} else {
			scratch++
		}
	}
	fmt.Fprintf(os.Stdout, "ok: %d entities (%d scratch, %d prefab instances)\n",
		len(doc.Entities), scratch, prefabs)
	return nil
}

// readSceneFile parses a scene document, picking the codec by file
// extension: .yaml/.yml as YAML, everything else as JSON.
func readSceneFile(path string) (*document.SceneDocument, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading %q", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return document.DecodeSceneYAML(bz)
	default:
		return document.DecodeScene(bz)
	}
}
