package commands

import (
	"fmt"
	"time"

	"objvault/pkg/ignore"
	"objvault/pkg/manifest"
	"objvault/pkg/treebuilder"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	writeSubtrees bool
	writeManifest bool
)

var writeTreeCmd = &cobra.Command{
	Use:   "write-tree [dir]",
	Short: "Snapshot a directory: store its blobs, then its tree",
	Long: `Build a tree object from a directory (default ".") honouring .ovignore,
write every blob it contains and then the tree itself, and print the root digest.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		start := time.Now()

		matcher, err := ignore.NewMatcher(dir)
		if err != nil {
			return fmt.Errorf("failed to load ignore rules: %w", err)
		}
		builder := treebuilder.NewBuilder(
			treebuilder.WithMatcher(matcher),
			treebuilder.WithInlineThreshold(viper.GetInt64("tree.inline_threshold")),
			treebuilder.WithLogger(OV.Logger),
		)
		snap, err := builder.FromDir(dir)
		if err != nil {
			return err
		}
		defer snap.Close()

		report, err := OV.Dumper(writeSubtrees).DumpTree(ctx, snap.Root)
		if err != nil {
			return fmt.Errorf("write-tree failed: %w", err)
		}

		if writeManifest {
			path, err := manifest.Write(OV.ManifestDir(), report.Manifest())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "manifest: %s\n", path)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "✅ %d files (%s), %d objects written in %s\n",
			snap.Files, humanize.IBytes(uint64(snap.Bytes)), len(report.Objects), time.Since(start).Round(time.Millisecond))
		fmt.Fprintln(out, report.Root)
		return nil
	},
}

func init() {
	writeTreeCmd.Flags().BoolVar(&writeSubtrees, "subtrees", false, "Also write every sub-tree (needed for checkout)")
	writeTreeCmd.Flags().BoolVar(&writeManifest, "manifest", false, "Record the written objects in .ov/manifests")
	rootCmd.AddCommand(writeTreeCmd)
}
