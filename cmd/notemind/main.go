// Package main is the notemind CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/notemind/internal/cli"
	"github.com/hyperjump/notemind/internal/config"
	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/internal/server"
	"github.com/hyperjump/notemind/internal/storage"
	"github.com/hyperjump/notemind/internal/watcher"
	"github.com/hyperjump/notemind/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/notemind/config.yaml"
	shutdownTimeout   = 10 * time.Second
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
}

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, so running from a project dir picks up its config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "notemind",
		Short:         "Index a folder of Markdown notes and answer questions about them",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile == "" {
				return nil
			}
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config (ignored when missing)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newSearchCmd(opts),
		newChatCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds a logger. serve logs structured output; the other
// commands log to stderr so stdout stays clean.
func setup(opts *rootOptions, serve bool) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || opts.debug
	var logger *zap.Logger
	if serve {
		logger, err = utils.NewLogger(debug)
	} else {
		logger, err = utils.NewCLILogger(debug)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Watch the notes directory and serve the search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts, true)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

// runServe runs the watcher, the indexing coordinator and the HTTP server until ctx is
// cancelled or one of them fails.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	if cfg.Watch.PruneDeletedOrDefault() {
		if _, err := comps.coordinator.Prune(ctx); err != nil {
			logger.Error("prune failed", zap.Error(err))
		}
	}
	if err := comps.coordinator.RebuildKeywordIndex(ctx); err != nil {
		logger.Warn("keyword index rebuild failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	w := watcher.NewWatcher(cfg.Watch.Directory,
		watcher.WithLogger(logger),
		watcher.WithExtensions(cfg.Watch.Extensions...),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithPruneDeleted(cfg.Watch.PruneDeletedOrDefault()),
		watcher.WithDebounce(cfg.Watch.Debounce),
		watcher.WithQueueSize(cfg.Watch.QueueSize),
	)
	if err := w.Start(gctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	g.Go(func() error {
		return comps.coordinator.Run(gctx, w.Events())
	})
	if cfg.Watch.SyncOnStartOrDefault() {
		g.Go(func() error {
			if err := w.SyncExistingFiles(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("initial sync incomplete", zap.Error(err))
			}
			return nil
		})
	}

	srv := server.NewServer(comps.search, comps.composer, comps.repo, comps.coordinator, cfg, logger)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		w.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		rebuild bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index every note under dir (defaults to the configured notes directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			comps, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx := cmd.Context()
			dir := cfg.Watch.Directory
			if len(args) == 1 {
				if dir, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}
			if rebuild {
				if err := comps.repo.Reset(ctx); err != nil {
					return fmt.Errorf("reset store: %w", err)
				}
			}
			sum, err := comps.coordinator.IndexDirectory(ctx, dir)
			if err != nil {
				return err
			}
			if dir == filepath.Clean(cfg.Watch.Directory) && cfg.Watch.PruneDeletedOrDefault() {
				pruned, err := comps.coordinator.Prune(ctx)
				if err != nil {
					return err
				}
				sum.Pruned = pruned
			}
			return cli.WriteSummary(cmd.OutOrStdout(), sum, outFormat)
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "discard the store before indexing")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

// buildQuery joins positional args so multi-word queries work with or without quotes.
func buildQuery(args []string) (string, error) {
	q := models.Query{Query: strings.Join(args, " ")}
	if err := q.Validate(); err != nil {
		return "", err
	}
	return q.Query, nil
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		limit   int
		useTerm bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank notes by similarity to the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			query, err := buildQuery(args)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if limit > 0 {
				cfg.Search.Limit = limit
			}

			comps, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx := cmd.Context()
			start := time.Now()
			var results []*models.SearchResult
			if useTerm {
				if err := comps.coordinator.RebuildKeywordIndex(ctx); err != nil {
					return err
				}
				results, err = comps.search.Keyword(ctx, query, cfg.Search.Limit)
			} else {
				results, err = comps.search.Search(ctx, query)
			}
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), &models.SearchResponse{
				Results:   results,
				Total:     len(results),
				QueryTime: time.Since(start).Milliseconds(),
				Query:     query,
			}, outFormat)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = configured limit)")
	cmd.Flags().BoolVar(&useTerm, "keyword", false, "use keyword matching instead of semantic similarity")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "chat <query>",
		Short: "Answer a question from the most relevant note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			query, err := buildQuery(args)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			comps, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			start := time.Now()
			answer, err := comps.composer.Answer(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			return cli.WriteChat(cmd.OutOrStdout(), &models.ChatResponse{
				Answer:    answer,
				QueryTime: time.Since(start).Milliseconds(),
				Query:     query,
			}, outFormat)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

var statusKeys = []string{"notes_dir", "backend", "location", "dimensions", "provider", "ocr_engine", "store", "notes", "disk_usage_bytes"}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store location, size and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			comps, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			status, err := storeStatus(cmd.Context(), cfg, comps.repo)
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), status, statusKeys, outFormat)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

// storeStatus reports the store health without failing on a corrupt store, so status
// stays usable for diagnosing one.
func storeStatus(ctx context.Context, cfg *config.Config, repo *storage.Repository) (map[string]interface{}, error) {
	status := map[string]interface{}{
		"notes_dir":  cfg.Watch.Directory,
		"backend":    cfg.Storage.Backend,
		"location":   repo.Backend().Location(),
		"dimensions": repo.Dimensions(),
		"provider":   cfg.Embedding.Provider,
		"ocr_engine": cfg.OCR.Engine,
	}
	snap, err := repo.Load(ctx)
	switch {
	case err == nil:
		status["store"] = "ok"
		status["notes"] = snap.Len()
	case errors.Is(err, storage.ErrCorrupt):
		status["store"] = "corrupt"
	case errors.Is(err, storage.ErrDimensionMismatch):
		status["store"] = "dimension_mismatch"
	default:
		return nil, fmt.Errorf("load store: %w", err)
	}
	if diskBytes, err := storage.DiskUsageBytes(storage.FootprintPaths(repo.Backend())...); err == nil {
		status["disk_usage_bytes"] = diskBytes
	}
	return status, nil
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notemind version %s\n", version)
		},
	}
}
