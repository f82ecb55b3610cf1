package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/imgcache"
)

var pullCmd = &cobra.Command{
	Use:   "pull <ref>",
	Short: "Pull the cache from an OCI registry",
	Long:  "Download slots that differ from the local cache and restore them into the cache directory.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) (err error) {
	cache, err := openCache(imgcache.WithRemote(args[0]))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fmt.Fprintf(os.Stderr, "Pulling %s...\n", args[0])

	if err := cache.Pull(context.Background()); err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Done.")
	return nil
}
