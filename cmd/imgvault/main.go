package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/imgvault/imgvault/internal/config"
	"github.com/imgvault/imgvault/internal/lock"
	"github.com/imgvault/imgvault/internal/logging"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/version"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Backend      string
	B2KeyID      string
	B2AppKey     string
	B2BucketID   string
	B2BucketName string
	S3Endpoint   string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Region     string
	LocalPath    string
}

func main() {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:   "imgvault",
		Short: "Image storage adapter for B2-compatible object storage",
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	rootCmd.PersistentFlags().StringVar(&overrides.Backend, "backend", "", "Storage backend (b2, s3, local)")
	rootCmd.PersistentFlags().StringVar(&overrides.B2KeyID, "b2-key-id", "", "B2 application key ID")
	rootCmd.PersistentFlags().StringVar(&overrides.B2AppKey, "b2-app-key", "", "B2 application key")
	rootCmd.PersistentFlags().StringVar(&overrides.B2BucketID, "b2-bucket-id", "", "B2 bucket ID")
	rootCmd.PersistentFlags().StringVar(&overrides.B2BucketName, "b2-bucket-name", "", "B2 bucket name")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Endpoint, "s3-endpoint", "", "S3 endpoint")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Bucket, "s3-bucket", "", "S3 bucket")
	rootCmd.PersistentFlags().StringVar(&overrides.S3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Region, "s3-region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&overrides.LocalPath, "local-path", "", "Local storage path")

	rootCmd.AddCommand(newStoreCmd(root, overrides))
	rootCmd.AddCommand(newGetCmd(root, overrides))
	rootCmd.AddCommand(newDeleteCmd(root, overrides))
	rootCmd.AddCommand(newExistsCmd(root, overrides))
	rootCmd.AddCommand(newInfoCmd(root, overrides))
	rootCmd.AddCommand(newStatusCmd(root, overrides))
	rootCmd.AddCommand(newEmptyCmd(root, overrides))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	if overrides.Backend != "" {
		cfg.Storage.Backend = overrides.Backend
	}
	if overrides.B2KeyID != "" {
		cfg.Storage.B2.KeyID = overrides.B2KeyID
	}
	if overrides.B2AppKey != "" {
		cfg.Storage.B2.ApplicationKey = overrides.B2AppKey
	}
	if overrides.B2BucketID != "" {
		cfg.Storage.B2.BucketID = overrides.B2BucketID
	}
	if overrides.B2BucketName != "" {
		cfg.Storage.B2.BucketName = overrides.B2BucketName
	}
	if overrides.S3Endpoint != "" {
		cfg.Storage.S3.Endpoint = overrides.S3Endpoint
	}
	if overrides.S3Bucket != "" {
		cfg.Storage.S3.Bucket = overrides.S3Bucket
	}
	if overrides.S3AccessKey != "" {
		cfg.Storage.S3.AccessKey = overrides.S3AccessKey
	}
	if overrides.S3SecretKey != "" {
		cfg.Storage.S3.SecretKey = overrides.S3SecretKey
	}
	if overrides.S3Region != "" {
		cfg.Storage.S3.Region = overrides.S3Region
	}
	if overrides.LocalPath != "" {
		cfg.Storage.Local.Path = overrides.LocalPath
	}
	return cfg, nil
}

// setup builds the logger, the storage backend, and the operation context
// shared by every command.
func setup(root *rootFlags, overrides *overrideFlags) (*config.Config, zerolog.Logger, storage.ImageStorage, context.Context, context.CancelFunc, error) {
	cfg, err := loadConfig(root, overrides)
	if err != nil {
		return nil, zerolog.Nop(), nil, nil, nil, err
	}
	logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		cancel()
		return nil, logger, nil, nil, nil, err
	}
	return cfg, logger, store, ctx, cancel, nil
}

func newStoreCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "store <user> <id>=<file> [<id>=<file>...]",
		Short: "Upload one or more images for a user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			type item struct{ id, path string }
			items := make([]item, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, path, ok := strings.Cut(arg, "=")
				if !ok || id == "" || path == "" {
					return fmt.Errorf("expected <id>=<file>, got %q", arg)
				}
				items = append(items, item{id: id, path: path})
			}

			cfg, logger, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			guard, err := lock.Acquire(cfg.Global.LockFile)
			if err != nil {
				return err
			}
			defer guard.Release()

			if parallel <= 0 {
				parallel = cfg.Upload.MaxParallelism
			}
			group, gctx := errgroup.WithContext(ctx)
			group.SetLimit(parallel)
			for _, it := range items {
				group.Go(func() error {
					data, err := os.ReadFile(it.path)
					if err != nil {
						return err
					}
					if err := store.Store(gctx, user, it.id, data); err != nil {
						return err
					}
					logger.Info().Str("user", user).Str("id", it.id).Int("bytes", len(data)).Msg("image stored")
					return nil
				})
			}
			return group.Wait()
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Max concurrent uploads (default from config)")
	return cmd
}

func newGetCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <user> <id>",
		Short: "Fetch an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			data, err := store.GetImage(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return err
			}
			logger.Info().Str("output", output).Int("bytes", len(data)).Msg("image written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write image to file instead of stdout")
	return cmd
}

func newDeleteCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user> <id>",
		Short: "Delete all stored versions of an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			guard, err := lock.Acquire(cfg.Global.LockFile)
			if err != nil {
				return err
			}
			defer guard.Release()

			if err := store.Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			logger.Info().Str("user", args[0]).Str("id", args[1]).Msg("image deleted")
			return nil
		},
	}
}

func newExistsCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <user> <id>",
		Short: "Check whether an image exists (exit code 1 when absent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			ok, err := store.Exists(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("absent")
				os.Exit(1)
			}
			fmt.Println("present")
			return nil
		},
	}
}

func newInfoCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <user> <id>",
		Short: "Print image metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			modified, err := store.LastModified(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("user: %s\nid: %s\nlast-modified: %s\n", args[0], args[1], modified.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func newStatusCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe storage backend health (exit code 1 when unhealthy)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			if !store.Status(ctx) {
				fmt.Println("unhealthy")
				os.Exit(1)
			}
			fmt.Println("healthy")
			return nil
		},
	}
}

func newEmptyCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Delete every file version in the bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to empty the bucket without --yes")
			}
			cfg, logger, store, ctx, cancel, err := setup(root, overrides)
			if err != nil {
				return err
			}
			defer cancel()

			emptier, ok := store.(storage.BucketEmptier)
			if !ok {
				return fmt.Errorf("backend %q does not support emptying", cfg.Storage.Backend)
			}

			guard, err := lock.Acquire(cfg.Global.LockFile)
			if err != nil {
				return err
			}
			defer guard.Release()

			if err := emptier.EmptyBucket(ctx); err != nil {
				return err
			}
			logger.Info().Msg("bucket emptied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm bucket-wide deletion")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}
