package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global  GlobalConfig  `mapstructure:"global"`
	Storage StorageConfig `mapstructure:"storage"`
	Upload  UploadConfig  `mapstructure:"upload"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LockFile         string        `mapstructure:"lock_file"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type StorageConfig struct {
	Backend string     `mapstructure:"backend"` // b2, s3, local
	B2      B2Store    `mapstructure:"b2"`
	S3      S3Store    `mapstructure:"s3"`
	Local   LocalStore `mapstructure:"local"`
}

type B2Store struct {
	KeyID          string `mapstructure:"key_id"`
	ApplicationKey string `mapstructure:"application_key"`
	BucketID       string `mapstructure:"bucket_id"`
	BucketName     string `mapstructure:"bucket_name"`
}

type S3Store struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	SessionToken    string `mapstructure:"session_token"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	TLSInsecureSkip bool   `mapstructure:"tls_insecure_skip"`
}

type LocalStore struct {
	Path string `mapstructure:"path"`
}

type UploadConfig struct {
	MaxParallelism int `mapstructure:"max_parallelism"`
}
