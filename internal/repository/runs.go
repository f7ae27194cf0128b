package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tanipaint/chirashi-extraction/constants"
	"github.com/tanipaint/chirashi-extraction/internal/common"
	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// RunRepository persists extraction runs and their records.
type RunRepository interface {
	CreateRun(ctx context.Context, sourcePath, format string) (*entity.ExtractionRun, error)
	MarkRunning(ctx context.Context, runID uuid.UUID) error
	FinishRun(ctx context.Context, runID uuid.UUID, status constants.RunStatus, recordCount int, errorMessage *string) error
	InsertRecords(ctx context.Context, runID uuid.UUID, records []entity.ExtractionRecord) error
	GetRun(ctx context.Context, runID uuid.UUID) (*entity.ExtractionRun, error)
	ListRuns(ctx context.Context, limit int) ([]entity.ExtractionRun, error)
	ListRecords(ctx context.Context, runID uuid.UUID) ([]entity.ExtractionRecord, error)
}

type runRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunRepository(db *sql.DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, logger: logger}
}

func (r *runRepository) CreateRun(ctx context.Context, sourcePath, format string) (*entity.ExtractionRun, error) {
	run := &entity.ExtractionRun{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Format:     format,
		Status:     string(constants.RunStatusQueued),
		StartedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, source_path, format, status, started_at, record_count)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		run.ID.String(), run.SourcePath, run.Format, run.Status, run.StartedAt,
	)
	if err != nil {
		r.logger.Error("repo.run.create_failed", "source", sourcePath, "error", err)
		return nil, common.NewAppError("DB_ERROR", "create run", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("repo.run.created", "run_id", run.ID, "source", sourcePath)
	return run, nil
}

func (r *runRepository) MarkRunning(ctx context.Context, runID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE extraction_runs SET status = $1 WHERE id = $2`,
		string(constants.RunStatusRunning), runID.String(),
	)
	if err != nil {
		return common.NewAppError("DB_ERROR", "mark run running", errors.Join(common.ErrDatabase, err))
	}
	return r.requireRow(res, runID)
}

func (r *runRepository) FinishRun(ctx context.Context, runID uuid.UUID, status constants.RunStatus, recordCount int, errorMessage *string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE extraction_runs
		 SET status = $1, finished_at = $2, record_count = $3, error_message = $4
		 WHERE id = $5`,
		string(status), now, recordCount, errorMessage, runID.String(),
	)
	if err != nil {
		return common.NewAppError("DB_ERROR", "finish run", errors.Join(common.ErrDatabase, err))
	}
	if err := r.requireRow(res, runID); err != nil {
		return err
	}
	r.logger.Info("repo.run.finished", "run_id", runID, "status", status, "records", recordCount)
	return nil
}

func (r *runRepository) InsertRecords(ctx context.Context, runID uuid.UUID, records []entity.ExtractionRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin tx", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO extraction_records
			 (id, run_id, product, price_incl_tax, price_excl_tax, unit, category, confidence, spatial_distance)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(), runID.String(),
			rec.Product, rec.PriceInclTax, rec.PriceExclTax, rec.Unit,
			rec.Category, rec.Confidence, rec.SpatialDistance,
		)
		if err != nil {
			return common.NewAppError("DB_ERROR", "insert record", errors.Join(common.ErrDatabase, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit records", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("repo.records.inserted", "run_id", runID, "count", len(records))
	return nil
}

func (r *runRepository) GetRun(ctx context.Context, runID uuid.UUID) (*entity.ExtractionRun, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source_path, format, status, started_at, finished_at, record_count, error_message
		 FROM extraction_runs WHERE id = $1`,
		runID.String(),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "run not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get run", errors.Join(common.ErrDatabase, err))
	}
	return run, nil
}

func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]entity.ExtractionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_path, format, status, started_at, finished_at, record_count, error_message
		 FROM extraction_runs ORDER BY started_at DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []entity.ExtractionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan run", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "iterate runs", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func (r *runRepository) ListRecords(ctx context.Context, runID uuid.UUID) ([]entity.ExtractionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product, price_incl_tax, price_excl_tax, unit, category, confidence, spatial_distance
		 FROM extraction_records WHERE run_id = $1
		 ORDER BY confidence DESC, product, price_incl_tax`,
		runID.String(),
	)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list records", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []entity.ExtractionRecord
	for rows.Next() {
		var rec entity.ExtractionRecord
		if err := rows.Scan(
			&rec.Product, &rec.PriceInclTax, &rec.PriceExclTax, &rec.Unit,
			&rec.Category, &rec.Confidence, &rec.SpatialDistance,
		); err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan record", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "iterate records", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func (r *runRepository) requireRow(res sql.Result, runID uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.NewAppError("DB_ERROR", "rows affected", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return common.NewAppError("NOT_FOUND", "run "+runID.String()+" not found", common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*entity.ExtractionRun, error) {
	var (
		run entity.ExtractionRun
		id  string
	)
	if err := row.Scan(
		&id, &run.SourcePath, &run.Format, &run.Status,
		&run.StartedAt, &run.FinishedAt, &run.RecordCount, &run.ErrorMessage,
	); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	run.ID = parsed
	return &run, nil
}
