package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) (err error) {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	stats, err := cache.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("root:      %s\n", cache.Root())
	fmt.Printf("slots:     %d\n", stats.Slots)
	fmt.Printf("artifacts: %d\n", stats.Artifacts)
	fmt.Printf("size:      %.1f MB\n", float64(stats.Bytes)/(1024*1024))
	return nil
}
