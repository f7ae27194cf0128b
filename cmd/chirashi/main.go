package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tanipaint/chirashi-extraction/internal/async"
	"github.com/tanipaint/chirashi-extraction/internal/categorizer"
	"github.com/tanipaint/chirashi-extraction/internal/common"
	"github.com/tanipaint/chirashi-extraction/internal/export"
	"github.com/tanipaint/chirashi-extraction/internal/extractor"
	"github.com/tanipaint/chirashi-extraction/internal/ingest"
	"github.com/tanipaint/chirashi-extraction/internal/llm/openai"
	"github.com/tanipaint/chirashi-extraction/internal/ocr"
	"github.com/tanipaint/chirashi-extraction/internal/pipeline"
	"github.com/tanipaint/chirashi-extraction/internal/repository"
	"github.com/tanipaint/chirashi-extraction/internal/validator"
)

var version = "0.1.0"

var (
	flagConfig     string
	flagFormat     string
	flagOutput     string
	flagOutputDir  string
	flagConfidence float64
	flagNoLLM      bool
	flagStore      bool
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "chirashi",
		Short: "Japanese retail flyer product/price extraction",
		Long: `chirashi reads supermarket flyer images (or Vision-style OCR dumps)
and extracts structured product/price records: tax-inclusive and
tax-exclusive prices, units, categories, and confidence scores.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML config file overlaying env settings")
	pf.StringVar(&flagFormat, "format", "", "output format: json, csv, or xlsx")
	pf.StringVar(&flagOutputDir, "output-dir", "", "directory for result files")
	pf.Float64Var(&flagConfidence, "confidence", 0, "minimum record confidence (0..1)")
	pf.BoolVar(&flagNoLLM, "no-llm", false, "disable LLM refinement and classification")
	pf.BoolVar(&flagStore, "store", false, "persist runs and records to the database")

	rootCmd.AddCommand(extractCmd(logger))
	rootCmd.AddCommand(batchCmd(logger))
	rootCmd.AddCommand(watchCmd(logger))
	rootCmd.AddCommand(exportCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves env, optional config file, then flag overrides.
func loadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	if flagConfig != "" {
		if err := cfg.MergeFile(flagConfig); err != nil {
			return nil, err
		}
	}
	if flagFormat != "" {
		cfg.Output.Format = flagFormat
	}
	if flagOutputDir != "" {
		cfg.Output.Dir = flagOutputDir
	}
	if flagConfidence > 0 {
		cfg.Extraction.MinConfidence = flagConfidence
	}
	if flagNoLLM {
		cfg.Extraction.UseLLM = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildPipeline wires every stage from the resolved config. The returned
// cleanup closes the database when one was opened.
func buildPipeline(ctx context.Context, cfg *common.Config, writeOutput bool, logger *slog.Logger) (*pipeline.Pipeline, repository.RunRepository, func(), error) {
	var client *openai.Client
	if cfg.Extraction.UseLLM {
		client = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}

	var refiner extractor.Refiner
	var cat *categorizer.Categorizer
	if client != nil {
		refiner = client
		cat = categorizer.New(client, logger)
	} else {
		cat = categorizer.New(nil, logger)
	}

	ex := extractor.New(extractor.Config{
		MaxSpatialDistance: cfg.Extraction.MaxSpatialDistance,
		MinConfidence:      cfg.Extraction.MinConfidence,
		UseLLM:             cfg.Extraction.UseLLM,
	}, refiner, logger)

	var (
		repo    repository.RunRepository
		db      *sql.DB
		cleanup = func() {}
	)
	if flagStore {
		if cfg.Database.DSN == "" {
			return nil, nil, nil, fmt.Errorf("--store requires DB_URL (or database_dsn in the config file)")
		}
		var err error
		db, err = repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { repository.Close(db, logger) }
		if err := repository.Migrate(ctx, db, logger); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		repo = repository.NewRunRepository(db, logger)
	}

	p := pipeline.New(pipeline.Config{
		OutputFormat: cfg.Output.Format,
		OutputDir:    cfg.Output.Dir,
		WriteOutput:  writeOutput,
	},
		ocr.NewTesseract(ocr.Config{Language: cfg.OCR.TesseractLang, TessdataDir: cfg.OCR.TessdataDir}, logger),
		ocr.NewLoader(logger),
		ex, cat, validator.New(logger), export.NewService(logger), repo, logger)
	return p, repo, cleanup, nil
}

func extractCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <flyer>",
		Short: "Extract products and prices from one flyer image or OCR dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			writeOutput := flagOutput == ""
			p, _, cleanup, err := buildPipeline(ctx, cfg, writeOutput, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := p.ProcessFile(ctx, args[0])
			if err != nil {
				return err
			}

			if flagOutput != "" {
				out, err := export.NewService(logger).Render(res.Records, cfg.Output.Format)
				if err != nil {
					return err
				}
				if err := os.WriteFile(flagOutput, out, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", flagOutput, err)
				}
				fmt.Printf("wrote %d records to %s\n", len(res.Records), flagOutput)
				return nil
			}
			fmt.Printf("wrote %d records to %s\n", len(res.Records), res.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagOutput, "output", "", "write results to this exact path instead of the output dir")
	return cmd
}

func batchCmd(logger *slog.Logger) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process every flyer under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, _, cleanup, err := buildPipeline(ctx, cfg, true, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			files, err := ingest.ScanDir(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("no flyer files found")
				return nil
			}

			q := async.NewQueue(func(ctx context.Context, path string) error {
				_, err := p.ProcessFile(ctx, path)
				return err
			}, logger, async.WithWorkers(workers))
			for _, f := range files {
				_ = q.Enqueue(ctx, async.NewJob(f))
			}
			q.Shutdown(ctx)

			fmt.Printf("processed %d files\n", len(files))
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent workers")
	return cmd
}

func watchCmd(logger *slog.Logger) *cobra.Command {
	var (
		workers  int
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Watch directories and process new flyers as they appear",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, _, cleanup, err := buildPipeline(ctx, cfg, true, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initial,
				Debounce:    debounce,
			}, logger)
			if err != nil {
				return err
			}

			q := async.NewQueue(func(ctx context.Context, path string) error {
				_, err := p.ProcessFile(ctx, path)
				return err
			}, logger, async.WithWorkers(workers))
			defer q.Shutdown(context.Background())

			logger.Info("watching for flyers", "roots", args)
			for {
				select {
				case <-ctx.Done():
					return nil
				case path, ok := <-evCh:
					if !ok {
						return nil
					}
					_ = q.Enqueue(ctx, async.NewJob(path))
				case werr, ok := <-errCh:
					if ok && werr != nil {
						logger.Error("watch error", "error", werr)
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 2, "concurrent workers")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "event debounce window")
	cmd.Flags().BoolVar(&initial, "initial-scan", false, "also process files already present")
	return cmd
}

func exportCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Re-export the records of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flagStore = true
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			_, repo, cleanup, err := buildPipeline(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := repo.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			records, err := repo.ListRecords(ctx, runID)
			if err != nil {
				return err
			}
			path, err := export.NewService(logger).WriteFile(records, cfg.Output.Format, cfg.Output.Dir, run.SourcePath)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d records to %s\n", len(records), path)
			return nil
		},
	}
	return cmd
}
