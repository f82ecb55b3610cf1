package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache slots and their outputs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	keys, err := cache.Slots()
	if err != nil {
		return err
	}

	count := 0
	for _, key := range keys {
		manifest, ok := cache.Lookup(key)
		if !ok {
			fmt.Printf("%s\t(corrupt or incomplete)\n", key)
			continue
		}
		for _, meta := range manifest.Metadatas {
			fmt.Printf("%s\t%s\t%dx%d\n", key, meta.Filename(), meta.Width, meta.Height)
			count++
		}
	}

	if count == 0 {
		fmt.Println("(no entries)")
	}

	return nil
}
