// scenectl inspects and repairs scene documents outside the engine: it
// validates snapshot files and rewrites legacy behavior type identifiers
// through a migration map.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "scenectl",
		Short: "Scene document toolbox",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(validateCmd())
	root.AddCommand(upgradeCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
