package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stride3d/stride-sub014/internal/diagfmt"
	"github.com/stride3d/stride-sub014/internal/driver"
)

var mixCmd = &cobra.Command{
	Use:   "mix [flags] <Class|effect>",
	Short: "Mix a shader class or a manifest effect into one program",
	Long: `Mix resolves the mixin graph of a class (or of an effect declared in sdslmix.toml),
links it and prints the flattened program`,
	Args: cobra.ExactArgs(1),
	RunE: runMix,
}

func init() {
	mixCmd.Flags().StringArrayP("include", "I", nil, "shader search directory (repeatable)")
	mixCmd.Flags().StringArrayP("define", "D", nil, "macro NAME=VALUE (repeatable)")
	mixCmd.Flags().StringArray("compose", nil, "composition key=Class or key=[A, B] (repeatable)")
	mixCmd.Flags().String("format", "text", "output format (text|json)")
	mixCmd.Flags().Bool("reflect", false, "print entry points, input attributes, constant buffers and resources")
	mixCmd.Flags().String("manifest", "", "path to sdslmix.toml (default: search upwards)")
	mixCmd.Flags().StringP("output", "o", "", "write the program to a file instead of stdout")
}

// mixOutput is the JSON form of a mix run.
type mixOutput struct {
	Name        string                    `json:"name"`
	Cached      bool                      `json:"cached"`
	Program     string                    `json:"program,omitempty"`
	Reflection  *driver.Reflection        `json:"reflection,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

func runMix(cmd *cobra.Command, args []string) error {
	includes, err := cmd.Flags().GetStringArray("include")
	if err != nil {
		return fmt.Errorf("failed to get include flag: %w", err)
	}
	defines, err := cmd.Flags().GetStringArray("define")
	if err != nil {
		return fmt.Errorf("failed to get define flag: %w", err)
	}
	composeValues, err := cmd.Flags().GetStringArray("compose")
	if err != nil {
		return fmt.Errorf("failed to get compose flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withReflection, err := cmd.Flags().GetBool("reflect")
	if err != nil {
		return fmt.Errorf("failed to get reflect flag: %w", err)
	}
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return fmt.Errorf("failed to get manifest flag: %w", err)
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	comps, err := parseCompositions(composeValues)
	if err != nil {
		return err
	}
	s, err := openSession(cmd, sessionOptions{includeDirs: includes, defines: defines, manifestPath: manifestPath})
	if err != nil {
		return err
	}
	defer s.Close()

	name, src, err := resolveRoot(s.manifest, args[0], comps)
	if err != nil {
		return err
	}
	res, err := s.compiler.Compile(cmd.Context(), driver.Request{Name: name, Source: src})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", outputPath, err)
		}
		defer f.Close()
		out = f
	}

	if format == "json" {
		payload := mixOutput{
			Name:   res.Name,
			Cached: res.Cached,
			Diagnostics: diagfmt.BuildDiagnosticsOutput(res.Bag, s.compiler.Files(), diagfmt.JSONOpts{
				IncludePositions: true,
				IncludeNotes:     true,
				Max:              s.maxDiags,
			}),
		}
		if !res.Failed() {
			payload.Program = string(res.Text)
			if withReflection {
				payload.Reflection = res.Reflection
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		if err := s.report(cmd, res); err != nil {
			return err
		}
		if !res.Failed() {
			if _, err := out.Write(res.Text); err != nil {
				return err
			}
			if withReflection {
				writeReflection(out, res.Reflection)
			}
		}
	}
	if res.Failed() || res.Bag.HasErrors() {
		return errFailed
	}
	return nil
}

// writeReflection appends the reflection as a comment block after the program.
func writeReflection(w io.Writer, r *driver.Reflection) {
	if r == nil {
		return
	}
	fmt.Fprintln(w, "\n/* reflection")
	for _, ep := range r.EntryPoints {
		fmt.Fprintf(w, " * entry %-8s %s", ep.Stage, ep.Name)
		if ep.Input != "" {
			fmt.Fprintf(w, " in=%s", ep.Input)
		}
		if ep.Output != "" {
			fmt.Fprintf(w, " out=%s", ep.Output)
		}
		fmt.Fprintln(w)
	}
	for _, a := range r.InputAttributes {
		fmt.Fprintf(w, " * input  %s%d\n", a.SemanticName, a.SemanticIndex)
	}
	for _, cb := range r.ConstantBuffers {
		fmt.Fprintf(w, " * cbuffer %s\n", cb.Name)
		for _, m := range cb.Members {
			if m.Group != "" {
				fmt.Fprintf(w, " *   %s %s [%s]\n", m.Type, m.Name, m.Group)
			} else {
				fmt.Fprintf(w, " *   %s %s\n", m.Type, m.Name)
			}
		}
	}
	for _, res := range r.Resources {
		fmt.Fprintf(w, " * resource %s %s\n", res.Type, res.Name)
	}
	fmt.Fprintln(w, " */")
}
