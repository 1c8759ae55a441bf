package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/schemafile"
)

// checkCmd parses and compiles schema documents without decoding anything.
var checkCmd = &cobra.Command{
	Use:   "check [schema files]",
	Short: "Validate schema documents",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failed := false
		for _, path := range args {
			file, err := schemafile.Load(path, dsl.Builtins())
			if err == nil {
				_, err = file.Schema.Compile(file.Options...)
			}
			if err != nil {
				failed = true
				color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", path, err)
				continue
			}
			okf("%s: ok", path)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
