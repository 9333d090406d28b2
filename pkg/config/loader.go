package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MetaDir 是仓库元数据目录名
const MetaDir = ".ov"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 -> ./.ov -> ~/.ov
		viper.AddConfigPath(".")
		viper.AddConfigPath(MetaDir)
		viper.AddConfigPath(filepath.Join(home, MetaDir))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// OV_STORAGE_PATH -> storage.path
	viper.SetEnvPrefix("OV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// 没有配置文件不算错，格式错才是
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	wd, _ := os.Getwd()

	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(wd, MetaDir, "objects"))
	viper.SetDefault("storage.sharded", false)
	viper.SetDefault("storage.compression", "default")

	viper.SetDefault("s3.region", "us-east-1")

	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("catalog.driver", "none")
	viper.SetDefault("catalog.path", filepath.Join(wd, MetaDir, "catalog.db"))

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "objvault")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("tree.inline_threshold", 1<<20)

	viper.SetDefault("log.level", "warn")
}
