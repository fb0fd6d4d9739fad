package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
)

var (
	// ErrNoInputFiles is returned when the configured paths hold no CSV files.
	ErrNoInputFiles = errors.New("no trip files found")
	// ErrNoUsableFiles is returned when trip files exist but none could be parsed.
	ErrNoUsableFiles = errors.New("no trip file could be parsed")
)

// Options configures a Loader.
type Options struct {
	Paths     []string // directories (scanned for *.csv) or individual files
	Encodings []string // tried in order per file
	Workers   int      // files parsed concurrently
}

// FileReport describes how one file was handled.
type FileReport struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
	Rows     int    `json:"rows"`
	Error    string `json:"error,omitempty"`
}

// Skipped reports whether the file contributed no rows because it failed to parse.
func (r FileReport) Skipped() bool { return r.Error != "" }

// Result is the outcome of one load: all rows in file order, plus per-file reports.
type Result struct {
	Rows  []domain.RawTrip
	Files []FileReport
}

// Loader reads trip CSV exports from disk.
type Loader struct {
	paths     []string
	encodings []textEncoding
	workers   int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewLoader validates opts and creates a Loader.
func NewLoader(opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Loader, error) {
	if len(opts.Paths) == 0 {
		return nil, errors.New("no input paths configured")
	}
	if len(opts.Encodings) == 0 {
		return nil, errors.New("no file encodings configured")
	}
	encs := make([]textEncoding, 0, len(opts.Encodings))
	for _, name := range opts.Encodings {
		enc, err := lookupEncoding(name)
		if err != nil {
			return nil, err
		}
		encs = append(encs, enc)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Loader{
		paths:     opts.Paths,
		encodings: encs,
		workers:   workers,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Extract loads every file and returns the concatenated rows.
func (l *Loader) Extract(ctx context.Context) ([]domain.RawTrip, error) {
	res, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Load discovers the input files, parses them concurrently and concatenates
// their rows in file order. Files that fail under every encoding are logged
// and skipped.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	files, err := l.discover()
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, fmt.Errorf("%w in %s", ErrNoInputFiles, strings.Join(l.paths, ", "))
	}

	parsed := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = l.parseFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Files: make([]FileReport, 0, len(parsed))}
	for _, p := range parsed {
		res.Files = append(res.Files, p.report)
		if p.report.Skipped() {
			l.logger.Warn("skipping unreadable trip file",
				"file", p.report.Path,
				"error", p.report.Error,
			)
			l.metrics.FilesSkipped.Inc()
			continue
		}
		l.logger.Info("trip file loaded",
			"file", p.report.Path,
			"encoding", p.report.Encoding,
			"rows", p.report.Rows,
		)
		l.metrics.FilesLoaded.WithLabelValues(p.report.Encoding).Inc()
		l.metrics.RowsLoaded.Add(float64(len(p.rows)))
		res.Rows = append(res.Rows, p.rows...)
	}

	if allSkipped(res.Files) {
		return res, fmt.Errorf("%w: %d file(s) skipped", ErrNoUsableFiles, len(res.Files))
	}
	return res, nil
}

// discover expands the configured paths into an ordered file list. Directory
// entries are taken in file-name order; missing paths are logged and ignored.
func (l *Loader) discover() ([]string, error) {
	var files []string
	for _, p := range l.paths {
		info, err := os.Stat(p)
		if err != nil {
			l.logger.Warn("input path unavailable", "path", p, "error", err)
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read input dir %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	return files, nil
}

type parsedFile struct {
	rows   []domain.RawTrip
	report FileReport
}

// parseFile reads path once and tries each encoding until one both decodes
// and parses as CSV.
func (l *Loader) parseFile(path string) parsedFile {
	report := FileReport{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		report.Error = err.Error()
		return parsedFile{report: report}
	}

	var errs []error
	for _, enc := range l.encodings {
		rows, err := parseCSV(data, enc, path)
		if err != nil {
			l.logger.Debug("encoding attempt failed", "file", path, "encoding", enc.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", enc.name, err))
			continue
		}
		report.Encoding = enc.name
		report.Rows = len(rows)
		return parsedFile{rows: rows, report: report}
	}
	report.Error = errors.Join(errs...).Error()
	return parsedFile{report: report}
}

func parseCSV(data []byte, enc textEncoding, path string) ([]domain.RawTrip, error) {
	decoded, err := enc.decode(data)
	if err != nil {
		return nil, err
	}

	records, lines, err := readRecords(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 1 {
		return []domain.RawTrip{}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	return toRawTrips(df, filepath.Base(path), lines), nil
}

// readRecords reads the header and every data record. Records shorter than
// the header are padded with empty cells and longer ones are cut to the
// header width, so one ragged row is left for the cleaner to drop instead of
// failing the whole file. lines holds the source line of each data record.
func readRecords(data []byte) (records [][]string, lines []int, err error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, nil, err
	}
	width := len(header)
	records = append(records, header)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := r.FieldPos(0)
		switch {
		case len(rec) < width:
			rec = append(rec, make([]string, width-len(rec))...)
		case len(rec) > width:
			rec = rec[:width]
		}
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// toRawTrips maps dataframe columns to RawTrip fields by header name. Header
// names are compared after trimming; a missing column leaves the field empty.
func toRawTrips(df dataframe.DataFrame, source string, lines []int) []domain.RawTrip {
	byName := make(map[string]string, df.Ncol())
	for _, name := range df.Names() {
		byName[strings.TrimSpace(name)] = name
	}
	col := func(header string) []string {
		name, ok := byName[header]
		if !ok {
			return nil
		}
		return df.Col(name).Records()
	}

	departure := col(domain.ColDeparture)
	ret := col(domain.ColReturn)
	bike := col(domain.ColBike)
	electric := col(domain.ColElectricBike)
	depStation := col(domain.ColDepartureStation)
	retStation := col(domain.ColReturnStation)
	membership := col(domain.ColMembershipType)
	distance := col(domain.ColCoveredDistance)
	duration := col(domain.ColDuration)

	n := df.Nrow()
	rows := make([]domain.RawTrip, n)
	for i := range n {
		rows[i] = domain.RawTrip{
			Departure:        at(departure, i),
			Return:           at(ret, i),
			Bike:             at(bike, i),
			ElectricBike:     at(electric, i),
			DepartureStation: at(depStation, i),
			ReturnStation:    at(retStation, i),
			MembershipType:   at(membership, i),
			CoveredDistance:  at(distance, i),
			Duration:         at(duration, i),
			SourceFile:       source,
			Line:             lineAt(lines, i),
		}
	}
	return rows
}

func lineAt(lines []int, i int) int {
	if i < len(lines) {
		return lines[i]
	}
	return i + 2 // header is line 1
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func allSkipped(files []FileReport) bool {
	for _, f := range files {
		if !f.Skipped() {
			return false
		}
	}
	return true
}
