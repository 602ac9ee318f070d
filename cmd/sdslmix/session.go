package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/diagfmt"
	"github.com/stride3d/stride-sub014/internal/driver"
	"github.com/stride3d/stride-sub014/internal/loader"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/project"
	"github.com/stride3d/stride-sub014/internal/source"
)

const appName = "sdslmix"

// session is the compiler a command works with, configured from the global
// flags, the -I and -D flags and the project manifest when there is one.
type session struct {
	compiler *driver.Compiler
	store    *driver.Store
	manifest *project.Manifest
	maxDiags int
	quiet    bool
	timings  bool
}

type sessionOptions struct {
	includeDirs  []string
	defines      []string
	manifestPath string
	// requireManifest fails when no manifest is found.
	requireManifest bool
}

func openSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	flags := cmd.Root().PersistentFlags()
	maxDiags, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	noReplace, err := flags.GetBool("no-replace")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-replace flag: %w", err)
	}

	s := &session{maxDiags: maxDiags, quiet: quiet, timings: timings}
	if s.manifest, err = loadManifest(opts.manifestPath, opts.requireManifest); err != nil {
		return nil, err
	}

	dirs := append([]string(nil), opts.includeDirs...)
	var macros mixin.Macros
	if s.manifest != nil {
		dirs = append(dirs, s.manifest.SearchPaths()...)
		macros = s.manifest.Macros()
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, def := range opts.defines {
		macros = macros.Merge(mixin.Macros{mixin.ParseMacro(def)})
	}

	if !noCache {
		s.store = openStore(cmd, quiet)
	}
	s.compiler = driver.New(driver.Options{
		Provider:       loader.NewDirProvider(dirs...),
		Macros:         macros,
		MaxDiagnostics: maxDiags,
		Store:          s.store,
		NoReplace:      noReplace,
	})
	return s, nil
}

func loadManifest(path string, required bool) (*project.Manifest, error) {
	if path != "" {
		return project.ReadManifest(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	m, ok, err := project.LoadManifest(cwd)
	if err != nil {
		return nil, err
	}
	if !ok {
		if required {
			return nil, fmt.Errorf("no %s found in %s or its parents", project.ManifestName, cwd)
		}
		return nil, nil
	}
	return m, nil
}

func cacheDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Root().PersistentFlags().GetString("cache-dir")
	if err != nil {
		return "", fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	if dir != "" {
		return dir, nil
	}
	return driver.DefaultCacheDir(appName)
}

// openStore returns nil when the store cannot be used; compilation then
// simply runs uncached.
func openStore(cmd *cobra.Command, quiet bool) *driver.Store {
	dir, err := cacheDir(cmd)
	if err == nil {
		var st *driver.Store
		if st, err = driver.OpenStore(dir); err == nil {
			return st
		}
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "warning: result store disabled: %v\n", err)
	}
	return nil
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil && !s.quiet {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// report prints the diagnostics of res to stderr, and its timings when
// --timings is set.
func (s *session) report(cmd *cobra.Command, res *driver.Result) error {
	if err := s.printDiagnostics(cmd, res.Bag); err != nil {
		return err
	}
	if s.timings && !res.Cached {
		fmt.Fprintf(os.Stderr, "%s\n%s", res.Name, res.Timing.Summary())
	}
	return nil
}

func (s *session) printDiagnostics(cmd *cobra.Command, bag *diag.Bag) error {
	return printDiagnostics(cmd, bag, s.compiler.Files(), s.maxDiags, s.quiet)
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag, fs *source.FileSet, max int, quiet bool) error {
	if bag == nil || bag.Len() == 0 || quiet && !bag.HasErrors() {
		return nil
	}
	color, err := useColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	base, _ := os.Getwd()
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{
		Color:     color,
		Context:   2,
		PathMode:  diagfmt.PathModeAuto,
		BaseDir:   base,
		ShowNotes: true,
		Max:       max,
	})
	return nil
}
