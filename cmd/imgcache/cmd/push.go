package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweris/imgcache"
)

var pushCmd = &cobra.Command{
	Use:   "push <ref>",
	Short: "Push the cache to an OCI registry",
	Long:  "Upload every complete cache slot to an OCI registry so other builds can reuse the artifacts.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) (err error) {
	cache, err := openCache(imgcache.WithRemote(args[0]))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fmt.Fprintf(os.Stderr, "Pushing %s...\n", args[0])

	if err := cache.Push(context.Background()); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Done.")
	return nil
}
