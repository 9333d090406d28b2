package commands

import (
	"fmt"
	"text/tabwriter"

	"objvault/pkg/core"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	objectsKind  string
	objectsLimit int
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "List objects recorded in the catalog",
	Long:  `Query the object catalog (catalog.driver = sqlite | postgres), newest first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if OV.Catalog == nil {
			return fmt.Errorf("no catalog configured (set catalog.driver to sqlite or postgres)")
		}
		ctx := cmd.Context()
		kind := core.ObjectType(objectsKind)
		switch kind {
		case "", core.TypeBlob, core.TypeTree:
		default:
			return fmt.Errorf("unknown object type %q", objectsKind)
		}

		records, err := OV.Catalog.ListObjects(ctx, kind, objectsLimit)
		if err != nil {
			return err
		}
		total, err := OV.Catalog.TotalSize(ctx, kind)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "TYPE\tHASH\tSIZE\tRECORDED\n")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Kind, rec.Hash, humanize.IBytes(uint64(rec.Size)), humanize.Time(rec.CreatedAt))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %s total\n", len(records), humanize.IBytes(uint64(total)))
		return nil
	},
}

func init() {
	objectsCmd.Flags().StringVar(&objectsKind, "type", "", "Only list objects of this type (blob or tree)")
	objectsCmd.Flags().IntVarP(&objectsLimit, "limit", "n", 20, "Maximum number of rows")
	rootCmd.AddCommand(objectsCmd)
}
