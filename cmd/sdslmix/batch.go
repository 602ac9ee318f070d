package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stride3d/stride-sub014/internal/driver"
	"github.com/stride3d/stride-sub014/internal/ui"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags]",
	Short: "Mix every effect of the project manifest",
	Long: `Batch compiles each [[effect]] of sdslmix.toml in parallel and writes the programs
to the output directory as <effect>.hlsl`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("manifest", "", "path to sdslmix.toml (default: search upwards)")
	batchCmd.Flags().Int("jobs", 0, "max parallel compilations (0=auto)")
	batchCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	batchCmd.Flags().StringP("out-dir", "o", "", "write <effect>.hlsl files here")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return fmt.Errorf("failed to get manifest flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return fmt.Errorf("failed to get out-dir flag: %w", err)
	}
	mode, err := parseProgressMode(uiValue)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, sessionOptions{manifestPath: manifestPath, requireManifest: true})
	if err != nil {
		return err
	}
	defer s.Close()

	effects, err := s.manifest.Effects()
	if err != nil {
		return err
	}
	reqs := make([]driver.Request, len(effects))
	names := make([]string, len(effects))
	for i := range effects {
		reqs[i] = driver.Request{Name: effects[i].Name, Source: effects[i].Source()}
		names[i] = effects[i].Name
	}

	var results []*driver.Result
	if mode.live(s.quiet, isTerminal(os.Stdout)) {
		results, err = compileWithUI(cmd.Context(), s.compiler, names, reqs, jobs)
	} else {
		results, err = s.compiler.CompileAll(cmd.Context(), reqs, jobs, nil)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if err := s.report(cmd, res); err != nil {
			return err
		}
		if res.Failed() || res.Bag.HasErrors() {
			failed++
			continue
		}
		if outDir != "" {
			if err := writeProgram(outDir, res); err != nil {
				return err
			}
		}
	}
	if !s.quiet {
		printBatchSummary(cmd, results, failed)
	}
	if failed > 0 {
		return errFailed
	}
	return nil
}

// compileWithUI runs the batch behind the progress view.
func compileWithUI(ctx context.Context, c *driver.Compiler, names []string, reqs []driver.Request, jobs int) ([]*driver.Result, error) {
	type outcome struct {
		results []*driver.Result
		err     error
	}
	events := make(chan driver.Event, 2*len(reqs)+16)
	done := make(chan outcome, 1)

	go func() {
		res, err := c.CompileAll(ctx, reqs, jobs, func(ev driver.Event) { events <- ev })
		done <- outcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("mixing effects", names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// drain so CompileAll never blocks on a quit view
	for range events {
	}
	out := <-done
	if uiErr != nil {
		return out.results, uiErr
	}
	return out.results, out.err
}

func writeProgram(dir string, res *driver.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", dir, err)
	}
	path := filepath.Join(dir, res.Name+".hlsl")
	if err := os.WriteFile(path, res.Text, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}

func printBatchSummary(cmd *cobra.Command, results []*driver.Result, failed int) {
	colored, err := useColor(cmd, os.Stderr)
	if err != nil {
		colored = false
	}
	ok, bad := color.New(color.FgGreen, color.Bold), color.New(color.FgRed, color.Bold)
	if !colored {
		ok.DisableColor()
		bad.DisableColor()
	} else {
		ok.EnableColor()
		bad.EnableColor()
	}
	cached := 0
	for _, res := range results {
		if res.Cached {
			cached++
		}
	}
	fmt.Fprintf(os.Stderr, "%s %d effects (%d from store)", ok.Sprint("mixed"), len(results)-failed, cached)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, ", %s", bad.Sprintf("%d failed", failed))
	}
	fmt.Fprintln(os.Stderr)
}
