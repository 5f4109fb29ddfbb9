package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "IMGVAULT"

// Load reads configuration from a file, env vars, and defaults.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved := resolveConfigPath(path)
	if resolved != "" {
		vp.SetConfigFile(resolved)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if envPath := os.Getenv("IMGVAULT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"imgvault.yaml",
		"imgvault.yml",
		"imgvault.toml",
		"imgvault.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, "imgvault")
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	return ""
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "json")
	vp.SetDefault("global.operation_timeout", "10m")
	vp.SetDefault("storage.backend", "b2")
	vp.SetDefault("storage.local.path", "./images")
	vp.SetDefault("storage.s3.use_ssl", true)
	vp.SetDefault("upload.max_parallelism", 4)
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Global.OperationTimeout == 0 {
		cfg.Global.OperationTimeout = 10 * time.Minute
	}
	if cfg.Upload.MaxParallelism <= 0 {
		cfg.Upload.MaxParallelism = 4
	}
}

func expandEnv(cfg *Config) {
	cfg.Storage.B2.KeyID = os.ExpandEnv(cfg.Storage.B2.KeyID)
	cfg.Storage.B2.ApplicationKey = os.ExpandEnv(cfg.Storage.B2.ApplicationKey)
	cfg.Storage.B2.BucketID = os.ExpandEnv(cfg.Storage.B2.BucketID)
	cfg.Storage.B2.BucketName = os.ExpandEnv(cfg.Storage.B2.BucketName)
	cfg.Storage.S3.AccessKey = os.ExpandEnv(cfg.Storage.S3.AccessKey)
	cfg.Storage.S3.SecretKey = os.ExpandEnv(cfg.Storage.S3.SecretKey)
	cfg.Storage.S3.SessionToken = os.ExpandEnv(cfg.Storage.S3.SessionToken)
}
