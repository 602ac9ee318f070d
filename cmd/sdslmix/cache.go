package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stride3d/stride-sub014/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent result store",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every stored result",
	Args:  cobra.NoArgs,
	RunE:  runCacheClean,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show where the store lives and how many results it holds",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	dir, err := cacheDir(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "result store not found")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	st, err := driver.OpenStore(dir)
	if err != nil {
		return err
	}
	n, lenErr := st.Len()
	dropErr := st.DropAll()
	if err := errors.Join(dropErr, st.Close()); err != nil {
		return err
	}
	if lenErr == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d results from %s\n", n, st.Path())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", st.Path())
	}
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	dir, err := cacheDir(cmd)
	if err != nil {
		return err
	}
	st, err := driver.OpenStore(dir)
	if err != nil {
		return err
	}
	defer st.Close()
	n, err := st.Len()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d results\n", st.Path(), n)
	return nil
}
