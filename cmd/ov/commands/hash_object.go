package commands

import (
	"fmt"
	"io"
	"os"

	"objvault/pkg/core"

	"github.com/spf13/cobra"
)

var (
	hashWrite bool
	hashStdin bool
)

var hashObjectCmd = &cobra.Command{
	Use:   "hash-object [-w] (--stdin | <file>...)",
	Short: "Compute object digests and optionally store the blobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hashStdin == (len(args) > 0) {
			return fmt.Errorf("pass either --stdin or at least one file")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		d := OV.Dumper(false)

		emit := func(blob core.Blob) error {
			if hashWrite {
				hash, err := d.DumpObject(ctx, blob)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, hash)
				return nil
			}
			hash, err := core.HashOf(blob)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hash)
			return nil
		}

		if hashStdin {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return emit(core.NewMemBlob(data))
		}

		for _, path := range args {
			if err := hashFile(path, emit); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	},
}

// hashFile 以流的方式处理文件，函数返回即关闭句柄
func hashFile(path string, emit func(core.Blob) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	blob, err := core.OpenFileBlob(path)
	if err != nil {
		return err
	}
	defer blob.Close()
	return emit(blob)
}

func init() {
	hashObjectCmd.Flags().BoolVarP(&hashWrite, "write", "w", false, "Write the object into the store")
	hashObjectCmd.Flags().BoolVar(&hashStdin, "stdin", false, "Read the object from standard input")
	rootCmd.AddCommand(hashObjectCmd)
}
