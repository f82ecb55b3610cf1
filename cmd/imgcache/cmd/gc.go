package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/imgcache"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Evict stale cache slots",
	Long:  "Delete slots whose recency marker exceeds the retention window. Retention 0 disables eviction.",
	Args:  cobra.NoArgs,
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().Int64("retention", 0, "retention window in seconds (default: config value)")

	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) (err error) {
	retention := viper.GetInt64("retention")
	if cmd.Flags().Changed("retention") {
		retention, _ = cmd.Flags().GetInt64("retention")
	}

	cache, err := openCache(imgcache.WithRetention(retention))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	removed := cache.Sweep()
	fmt.Printf("evicted %d slot(s)\n", removed)
	return nil
}
