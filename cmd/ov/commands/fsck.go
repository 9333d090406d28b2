package commands

import (
	"errors"
	"fmt"

	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck [hash...]",
	Short: "Verify that stored objects hash to their names",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		var hashes []types.Hash
		if len(args) > 0 {
			for _, arg := range args {
				h, err := resolveHash(ctx, arg)
				if err != nil {
					return err
				}
				hashes = append(hashes, h)
			}
		} else {
			l, ok := OV.Store.(storage.Lister)
			if !ok {
				return fmt.Errorf("%w; pass hashes explicitly", storage.ErrListUnsupported)
			}
			var err error
			if hashes, err = l.List(ctx); err != nil {
				if errors.Is(err, storage.ErrListUnsupported) {
					return fmt.Errorf("%w; pass hashes explicitly", err)
				}
				return err
			}
		}

		var bad int
		for _, h := range hashes {
			if err := OV.Exporter.Verify(ctx, h); err != nil {
				bad++
				fmt.Fprintf(out, "❌ %v\n", err)
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d of %d objects failed verification", bad, len(hashes))
		}
		fmt.Fprintf(out, "✅ %d objects OK\n", len(hashes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
}
