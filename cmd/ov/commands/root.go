package commands

import (
	"context"
	"fmt"
	"os"

	"objvault/pkg/app"
	"objvault/pkg/config"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	OV *app.App
)

var rootCmd = &cobra.Command{
	Use:   "ov",
	Short: "objvault: content-addressed blob and tree objects",
	// PersistentPreRunE 在所有子命令之前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init 负责创建环境，不需要 App；测试里 OV 可能已经注入
		if cmd.Name() == "init" || OV != nil {
			return nil
		}

		var err error
		OV, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize objvault: %w\n(Did you run 'ov init'?)", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if OV == nil {
			return nil
		}
		err := OV.Close()
		OV = nil
		return err
	},
	SilenceUsage: true,
}

// Execute 是入口
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.ov/config.yaml or $HOME/.ov/config.yaml)")
	flags.String("storage-path", "", "Directory to store objects")
	flags.String("compression", "", "Compression level: none, default, huffman or 0-9")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	// 既可以在 yaml 里写，也可以用 flag 覆盖
	for key, flag := range map[string]string{
		"storage.path":        "storage-path",
		"storage.compression": "compression",
		"log.level":           "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}

// resolveHash 接受完整哈希或者短前缀
func resolveHash(ctx context.Context, arg string) (types.Hash, error) {
	if h := types.Hash(arg); h.IsValid() {
		return h, nil
	}
	hash, err := OV.Store.ExpandHash(ctx, types.HashPrefix(arg))
	if err != nil {
		return "", fmt.Errorf("invalid object '%s': %w", arg, err)
	}
	return hash, nil
}
