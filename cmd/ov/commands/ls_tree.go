package commands

import (
	"github.com/spf13/cobra"
)

var lsTreeCmd = &cobra.Command{
	Use:   "ls-tree <hash>",
	Short: "List the entries of a tree object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := resolveHash(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return OV.Exporter.LsTree(cmd.Context(), hash, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(lsTreeCmd)
}
