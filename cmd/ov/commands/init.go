package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"objvault/pkg/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an objvault repository",
	Long:  `Create an empty objvault repository (.ov/objects and .ov/manifests) in the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		repoPath := filepath.Join(wd, config.MetaDir)
		if _, err := os.Stat(repoPath); err == nil {
			fmt.Fprintf(out, "⚠️  objvault repository already exists in %s\n", repoPath)
			return nil
		}

		for _, dir := range []string{"objects", "manifests"} {
			if err := os.MkdirAll(filepath.Join(repoPath, dir), 0755); err != nil {
				return fmt.Errorf("failed to create repo directory: %w", err)
			}
		}

		fmt.Fprintf(out, "✅ Initialized empty objvault repository in %s\n", repoPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
