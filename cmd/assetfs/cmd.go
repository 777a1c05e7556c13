package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/assets"
	"github.com/jackfish212/assetfs/capability"
	"github.com/jackfish212/assetfs/handlecache"
	"github.com/jackfish212/assetfs/internal/config"
	"github.com/jackfish212/assetfs/internal/logging"
	"github.com/jackfish212/assetfs/internal/metrics"
)

var envFiles []string

func Cmd() {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:           "assetfs",
		Short:         assetfs.GetVersionInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles,
		"env", nil, ".env files to load (default .env)")

	rootCmd.AddCommand(servCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "assetfs: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(loggerConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func loggerConfig(cfg *config.Config) logging.Config {
	lc := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	lc.Development = cfg.Log.Development
	return lc
}

// app is a wired manager with everything it owns.
type app struct {
	manager *assetfs.Manager
	metrics *metrics.Metrics
	store   handlecache.Store
	log     *zap.Logger
}

// newApp wires a manager from cfg. It does not restore anything.
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	if cfg.AllowPersistence {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	var store handlecache.Store = handlecache.NewMemoryStore()
	if p := cfg.HandleStorePath(); p != "" {
		s, err := handlecache.OpenSQLiteStore(p)
		if err != nil {
			return nil, err
		}
		store = s
	}

	builderOpts := []assets.Option{
		assets.WithIgnore(cfg.AssetIgnore...),
		assets.WithLogger(log.Named("assets")),
	}
	if cfg.Sniff {
		builderOpts = append(builderOpts, assets.WithContentSniffing())
	}
	builder, err := assets.NewBuilder(assets.NewRegistry(cfg.BlobPrefix), builderOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New()
	mgr := assetfs.New(
		assetfs.WithHandleCache(handlecache.New(store, handlecache.WithLogger(log.Named("handlecache")))),
		assetfs.WithCapabilities(capability.NewProbe(capability.Detect(cfg.LocalEnabled))),
		assetfs.WithAssetBuilder(builder),
		assetfs.WithPersistence(cfg.VirtualStorePath()),
		assetfs.WithFilesystemType(cfg.FilesystemKind()),
		assetfs.WithLogger(log.Named("manager")),
		assetfs.WithObserver(m),
	)
	return &app{manager: mgr, metrics: m, store: store, log: log}, nil
}

func (a *app) Close() error {
	err := a.manager.Close()
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.log.Sync()
	return err
}

// restore brings back the previous session's mount.
func (a *app) restore(ctx context.Context) error {
	if err := a.manager.Restore(ctx); err != nil {
		return fmt.Errorf("restoring mount: %w", err)
	}
	st := a.manager.State()
	a.log.Info("mount restored",
		zap.String("filesystem", string(st.FilesystemType)),
		zap.String("directory", st.DirectoryName),
		zap.String("archive", st.ArchiveFilename),
		zap.Int("assets", st.Count),
	)
	return nil
}
