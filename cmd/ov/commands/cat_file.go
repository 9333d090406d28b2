package commands

import (
	"fmt"

	"objvault/pkg/core"

	"github.com/spf13/cobra"
)

var (
	catType   bool
	catSize   bool
	catPretty bool
)

var catFileCmd = &cobra.Command{
	Use:   "cat-file (-t | -s | -p | blob) <hash>",
	Short: "Show type, size or content of a stored object",
	Long: `With -t print the object type, with -s its payload size, with -p a readable
rendering. "cat-file blob <hash>" writes the raw blob content to stdout.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		raw := len(args) == 2
		if raw && args[0] != string(core.TypeBlob) {
			return fmt.Errorf("unsupported object type %q (only blob)", args[0])
		}
		if !raw && !catType && !catSize && !catPretty {
			return fmt.Errorf("one of -t, -s, -p or 'blob' is required")
		}

		hash, err := resolveHash(ctx, args[len(args)-1])
		if err != nil {
			return err
		}

		switch {
		case raw:
			_, err = OV.Exporter.CatBlob(ctx, hash, out)
			return err
		case catPretty:
			return OV.Exporter.PrintObject(ctx, hash, out)
		}

		info, err := OV.Exporter.Inspect(ctx, hash)
		if err != nil {
			return err
		}
		if catType {
			fmt.Fprintln(out, info.Kind)
		} else {
			fmt.Fprintln(out, info.Size)
		}
		return nil
	},
}

func init() {
	catFileCmd.Flags().BoolVarP(&catType, "type", "t", false, "Show the object type")
	catFileCmd.Flags().BoolVarP(&catSize, "size", "s", false, "Show the payload size")
	catFileCmd.Flags().BoolVarP(&catPretty, "pretty", "p", false, "Pretty-print the object")
	catFileCmd.MarkFlagsMutuallyExclusive("type", "size", "pretty")
	rootCmd.AddCommand(catFileCmd)
}
