package datafile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"surveystat/domain/dataset"
	"surveystat/internal"
	"surveystat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported input file type
type Format string

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatStata Format = "dta"
	FormatSAS   Format = "sas7bdat"
)

var formatsByExt = map[string]Format{
	".csv":      FormatCSV,
	".xlsx":     FormatXLSX,
	".dta":      FormatStata,
	".sas7bdat": FormatSAS,
}

// Reader loads a survey file into a dataset
type Reader struct {
	filePath string
	format   Format
	logger   *internal.Logger
}

// NewReader selects a reader by file extension
func NewReader(filePath string) (*Reader, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	format, ok := formatsByExt[ext]
	if !ok {
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type %q (supported: .csv, .xlsx, .dta, .sas7bdat)", ext))
	}
	return &Reader{
		filePath: filePath,
		format:   format,
		logger:   internal.DefaultLogger.With("datafile"),
	}, nil
}

// WithLogger replaces the reader's logger
func (r *Reader) WithLogger(logger *internal.Logger) *Reader {
	r.logger = logger.With("datafile")
	return r
}

// Format returns the detected file format
func (r *Reader) Format() Format {
	return r.format
}

// Read loads the whole file. The dataset is named after the file without extension.
func (r *Reader) Read(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Info("Starting to read %s file: %s", r.format, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(string(r.format)), r.filePath))
	}

	start := time.Now()
	var (
		ds  *dataset.Dataset
		err error
	)
	switch r.format {
	case FormatCSV:
		ds, err = r.readTabular(r.readCSVRows)
	case FormatXLSX:
		ds, err = r.readTabular(r.readExcelRows)
	case FormatStata:
		ds, err = readStata(r.filePath, r.name())
	case FormatSAS:
		ds, err = readSAS(r.filePath, r.name())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", r.filePath)
	}

	ds.Source = r.filePath
	r.logger.Info("%s file processed in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(r.format)), float64(time.Since(start).Nanoseconds())/1e6, len(ds.Columns()), ds.Rows())
	return ds, nil
}

func (r *Reader) name() string {
	base := filepath.Base(r.filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *Reader) readTabular(readRows func() ([][]string, error)) (*dataset.Dataset, error) {
	rows, err := readRows()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file must have at least a header row and one data row", strings.ToUpper(string(r.format))))
	}
	return BuildDataset(r.name(), rows[0], rows[1:])
}

// readExcelRows reads the first sheet of the workbook
func (r *Reader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	r.logger.Debug("Sheet %s read (%d rows)", sheets[0], len(rows))
	return rows, nil
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV file read (%d rows)", len(rows))
	return rows, nil
}

// Loader adapts Reader to ports.DatasetLoader
type Loader struct {
	Logger *internal.Logger
}

// Load selects a reader for path and reads it
func (l Loader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	if l.Logger != nil {
		r.WithLogger(l.Logger)
	}
	return r.Read(ctx)
}
