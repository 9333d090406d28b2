package commands

import (
	"errors"
	"fmt"
	"time"

	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <tree-hash> [dir]",
	Short: "Restore a stored tree into a directory",
	Long: `Materialise a tree object (and everything under it) into dir (default ".").
The tree must have been written with 'write-tree --subtrees'.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		hash, err := resolveHash(ctx, args[0])
		if err != nil {
			return err
		}
		target := "."
		if len(args) == 2 {
			target = args[1]
		}

		var files int
		var total uint64
		err = OV.Exporter.RestoreTree(ctx, hash, target, func(path string, _ types.Hash, size uint64) {
			files++
			total += size
		})
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("checkout failed: %w\n(was the tree written with 'ov write-tree --subtrees'?)", err)
		}
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Restored %d files (%s) from %s in %s\n",
			files, humanize.IBytes(total), hash[:8], time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
