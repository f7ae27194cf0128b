package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tanipaint/chirashi-extraction/internal/entity"
)

// Service renders extraction records as JSON, CSV, or an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

var columns = []string{
	"product",
	"price_incl_tax",
	"price_excl_tax",
	"unit",
	"category",
	"confidence",
	"spatial_distance",
}

// Render produces the serialized records in the requested format
// ("json", "csv", or "xlsx").
func (s *Service) Render(records []entity.ExtractionRecord, format string) ([]byte, error) {
	start := time.Now()
	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = renderJSON(records)
	case "csv":
		out, err = renderCSV(records)
	case "xlsx":
		out, err = renderXLSX(records)
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.render",
		"format", format,
		"records", len(records),
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// WriteFile renders the records and writes them under dir using the
// timestamped naming scheme. Returns the written path.
func (s *Service) WriteFile(records []entity.ExtractionRecord, format, dir, sourcePath string) (string, error) {
	out, err := s.Render(records, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, OutputFilename(sourcePath, format, time.Now()))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	s.logger.Info("export.written", "path", path)
	return path, nil
}

// OutputFilename builds "chirashi_result_<base>_<timestamp>.<ext>" from the
// source file the records came from.
func OutputFilename(sourcePath, format string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if base == "" {
		base = "chirashi"
	}
	return fmt.Sprintf("chirashi_result_%s_%s.%s", base, now.Format("20060102_150405"), format)
}

func renderJSON(records []entity.ExtractionRecord) ([]byte, error) {
	if records == nil {
		records = []entity.ExtractionRecord{}
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(out, '\n'), nil
}

func renderCSV(records []entity.ExtractionRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{
			r.Product,
			strconv.Itoa(r.PriceInclTax),
			intOrEmpty(r.PriceExclTax),
			strOrEmpty(r.Unit),
			r.Category,
			strconv.FormatFloat(r.Confidence, 'f', 3, 64),
			strconv.FormatFloat(r.SpatialDistance, 'f', 1, 64),
		}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(records []entity.ExtractionRecord) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Products"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, r := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Product)
		write(2, r.PriceInclTax)
		if r.PriceExclTax != nil {
			write(3, *r.PriceExclTax)
		}
		if r.Unit != nil {
			write(4, *r.Unit)
		}
		write(5, r.Category)
		write(6, r.Confidence)
		write(7, r.SpatialDistance)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
