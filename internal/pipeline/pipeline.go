package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tanipaint/chirashi-extraction/constants"
	"github.com/tanipaint/chirashi-extraction/internal/categorizer"
	"github.com/tanipaint/chirashi-extraction/internal/entity"
	"github.com/tanipaint/chirashi-extraction/internal/export"
	"github.com/tanipaint/chirashi-extraction/internal/extractor"
	"github.com/tanipaint/chirashi-extraction/internal/ingest"
	"github.com/tanipaint/chirashi-extraction/internal/ocr"
	"github.com/tanipaint/chirashi-extraction/internal/repository"
	"github.com/tanipaint/chirashi-extraction/internal/validator"
)

// Config holds the output half of the pipeline; the extraction tunables live
// in the extractor itself.
type Config struct {
	OutputFormat string // "json" | "csv" | "xlsx"
	OutputDir    string
	WriteOutput  bool
}

// Result is the outcome of processing one flyer file.
type Result struct {
	RunID      *uuid.UUID
	SourcePath string
	Records    []entity.ExtractionRecord
	OutputPath string
}

// Pipeline drives a flyer file through recognition, extraction,
// categorization, validation, and output. The repository is optional; without
// one, runs are not persisted.
type Pipeline struct {
	cfg      Config
	imageSrc ocr.Source
	dumpSrc  ocr.Source
	ex       *extractor.Extractor
	cat      *categorizer.Categorizer
	val      *validator.Validator
	exp      *export.Service
	repo     repository.RunRepository
	logger   *slog.Logger
}

func New(cfg Config, imageSrc ocr.Source, dumpSrc ocr.Source, ex *extractor.Extractor, cat *categorizer.Categorizer, val *validator.Validator, exp *export.Service, repo repository.RunRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return &Pipeline{
		cfg:      cfg,
		imageSrc: imageSrc,
		dumpSrc:  dumpSrc,
		ex:       ex,
		cat:      cat,
		val:      val,
		exp:      exp,
		repo:     repo,
		logger:   logger,
	}
}

// ProcessFile runs the full pipeline on one flyer image or OCR dump.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	var run *entity.ExtractionRun
	if p.repo != nil {
		created, err := p.repo.CreateRun(ctx, path, format)
		if err != nil {
			return nil, err
		}
		run = created
		if err := p.repo.MarkRunning(ctx, run.ID); err != nil {
			return nil, err
		}
	}

	res, err := p.process(ctx, path, format)
	if p.repo != nil && run != nil {
		if err != nil {
			msg := err.Error()
			if ferr := p.repo.FinishRun(ctx, run.ID, constants.RunStatusFailed, 0, &msg); ferr != nil {
				p.logger.Error("pipeline.finish_failed", "run_id", run.ID, "error", ferr)
			}
		} else {
			if serr := p.repo.InsertRecords(ctx, run.ID, res.Records); serr != nil {
				p.logger.Error("pipeline.store_failed", "run_id", run.ID, "error", serr)
			}
			if ferr := p.repo.FinishRun(ctx, run.ID, constants.RunStatusOK, len(res.Records), nil); ferr != nil {
				p.logger.Error("pipeline.finish_failed", "run_id", run.ID, "error", ferr)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if run != nil {
		res.RunID = &run.ID
	}

	p.logger.Info("pipeline.done",
		"path", path,
		"records", len(res.Records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, path, format string) (*Result, error) {
	src := p.imageSrc
	if format == constants.OCRJSON {
		src = p.dumpSrc
	}
	if src == nil {
		return nil, fmt.Errorf("no recognizer configured for %s", format)
	}

	ocrRes, err := src.Recognize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", path, err)
	}
	ocrConf := float64(ocr.HeuristicConfidence(ocrRes.FullText))
	p.logger.Info("pipeline.recognized", "path", path, "annotations", len(ocrRes.TextAnnotations), "ocr_confidence", ocrConf)

	records, err := p.ex.Extract(ctx, ocrRes)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	kept := make([]entity.ExtractionRecord, 0, len(records))
	for _, rec := range records {
		catRes := p.cat.Categorize(ctx, rec.Product)
		rec.Category = string(catRes.Category)

		verdict := p.val.Validate(rec, validator.Signals{
			OCRConfidence:      ocrConf,
			CategoryConfidence: methodConfidence(catRes.Method),
		})
		if !verdict.Valid {
			p.logger.Warn("pipeline.record_dropped", "product", rec.Product, "errors", verdict.Errors)
			continue
		}
		kept = append(kept, rec)
	}

	res := &Result{SourcePath: path, Records: kept}
	if p.cfg.WriteOutput && p.exp != nil {
		out, err := p.exp.WriteFile(kept, p.cfg.OutputFormat, p.cfg.OutputDir, path)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
		res.OutputPath = out
	}
	return res, nil
}

// ProcessDir runs every flyer under root, isolating per-file failures so one
// broken flyer never aborts the batch.
func (p *Pipeline) ProcessDir(ctx context.Context, root string) ([]*Result, error) {
	files, err := ingest.ScanDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	p.logger.Info("pipeline.batch_start", "root", root, "files", len(files))

	results := make([]*Result, 0, len(files))
	failed := 0
	for _, f := range files {
		res, err := p.ProcessFile(ctx, f)
		if err != nil {
			failed++
			p.logger.Error("pipeline.batch_file_failed", "path", f, "error", err)
			continue
		}
		results = append(results, res)
	}
	p.logger.Info("pipeline.batch_done", "root", root, "ok", len(results), "failed", failed)
	return results, nil
}

// methodConfidence maps how a category was decided onto a stage confidence.
func methodConfidence(m categorizer.Method) float64 {
	switch m {
	case categorizer.MethodKeyword:
		return 0.9
	case categorizer.MethodLLM:
		return 0.7
	default:
		return 0.3
	}
}
