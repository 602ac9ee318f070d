package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/format"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/parser"
	"github.com/stride3d/stride-sub014/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file.sdsl>",
	Short: "Parse one shader file and print it back",
	Long:  `Parse preprocesses and parses a single .sdsl file and prints the class in canonical form`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringArrayP("define", "D", nil, "macro NAME=VALUE (repeatable)")
	parseCmd.Flags().Bool("preprocess", false, "print the preprocessed text instead of the parsed class")
	parseCmd.Flags().Bool("tabs", false, "indent with tabs")
}

func runParse(cmd *cobra.Command, args []string) error {
	defines, err := cmd.Flags().GetStringArray("define")
	if err != nil {
		return fmt.Errorf("failed to get define flag: %w", err)
	}
	preprocessOnly, err := cmd.Flags().GetBool("preprocess")
	if err != nil {
		return fmt.Errorf("failed to get preprocess flag: %w", err)
	}
	tabs, err := cmd.Flags().GetBool("tabs")
	if err != nil {
		return fmt.Errorf("failed to get tabs flag: %w", err)
	}
	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var macros mixin.Macros
	for _, def := range defines {
		macros = macros.Merge(mixin.Macros{mixin.ParseMacro(def)})
	}

	fs := source.NewFileSet()
	id, err := fs.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", args[0], err)
	}
	bag := diag.NewBag(maxDiags)
	rep := diag.BagReporter{Bag: bag}

	var out []byte
	if preprocessOnly {
		out = parser.Preprocess(fs.Get(id), macros, rep)
	} else if sh := parser.Parse(fs.Get(id), macros, rep); sh != nil {
		out = format.Shader(sh, format.Options{UseTabs: tabs})
	}

	bag.Sort()
	if err := printDiagnostics(cmd, bag, fs, maxDiags, quiet); err != nil {
		return err
	}
	if out != nil {
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
	}
	if out == nil || bag.HasErrors() {
		return errFailed
	}
	return nil
}
