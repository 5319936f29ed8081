package app

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"surveystat/adapters/filestore"
	"surveystat/domain/core"
	"surveystat/domain/dataset"
	"surveystat/domain/run"
	"surveystat/domain/stats"
	"surveystat/internal"
	"surveystat/internal/analysis/toolkit"
	"surveystat/internal/config"
	"surveystat/internal/errors"
	"surveystat/internal/metrics"
	"surveystat/internal/report"
	"surveystat/ports"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// DefaultBaselinePeriod is the KPI baseline window when a request leaves it unset
const DefaultBaselinePeriod = 30

// fileOrder labels KPI series that follow row order because no time column was given
const fileOrder = "file order"

// ReportRequest describes one report generation
type ReportRequest struct {
	FilePath string
	Title    string

	// Variables are summarised, tested for normality and correlated. Empty means
	// every numeric column.
	Variables []string
	// Target is the correlation target; defaults to the first variable
	Target string

	// Each group column is compared on Outcome. Numeric columns with more than two
	// values are split at their median.
	GroupColumns []string
	Outcome      string

	ChiSquareA string
	ChiSquareB string

	Metrics        []string
	TimeColumn     string
	BaselinePeriod int
}

// ReportResult is the outcome of Generate
type ReportResult struct {
	Run      *run.Run
	Path     string
	Markdown string
	Notes    []string
}

// ReportService produces and archives unified analysis reports
type ReportService struct {
	cfg     *config.Config
	toolkit *toolkit.Toolkit
	loader  ports.DatasetLoader
	repo    ports.ReportRepository
	builder *report.Builder
	logger  *internal.Logger
	now     func() time.Time

	telemetry *metrics.Metrics
}

// NewReportService wires the service. repo may be nil to skip archiving.
func NewReportService(cfg *config.Config, loader ports.DatasetLoader, repo ports.ReportRepository,
	charts report.ChartRenderer, logger *internal.Logger) (*ReportService, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	tk, err := toolkit.New(toolkit.Options{SignificanceLevel: cfg.Analysis.SignificanceLevel})
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return &ReportService{
		cfg:     cfg,
		toolkit: tk,
		loader:  loader,
		repo:    repo,
		builder: report.NewBuilder(charts, logger),
		logger:  logger.With("report-service"),
		now:     time.Now,
	}, nil
}

// SetMetrics enables Prometheus instrumentation of Generate
func (s *ReportService) SetMetrics(m *metrics.Metrics) {
	s.telemetry = m
}

// Generate loads the file, runs every requested analysis, writes the markdown report
// to the output directory and archives the run. Optional sections that cannot be
// computed become notes in the report.
func (s *ReportService) Generate(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	began := time.Now()
	res, skipped, err := s.generate(ctx, req)
	s.telemetry.ObserveReport(err, time.Since(began), skipped)
	return res, err
}

func (s *ReportService) generate(ctx context.Context, req ReportRequest) (*ReportResult, int, error) {
	start := s.now()

	ds, err := s.loader.Load(ctx, req.FilePath)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to load dataset")
	}
	if err := s.normalize(ds, &req); err != nil {
		return nil, 0, errors.Wrap(err, "invalid report request")
	}
	s.logger.Info("Generating report for %s (%d rows, %d variables)", ds.Name, ds.Rows(), len(req.Variables))

	in := report.Input{
		Title:       req.Title,
		Dataset:     ds,
		GeneratedAt: start,
		Alpha:       s.toolkit.SignificanceLevel(),
		Dictionary:  dataset.Dictionary(ds),
		Categories:  dataset.Categorize(ds),
		Missing:     dataset.ProfileMissing(ds),
	}
	s.flagMissing(&in)

	if in.Descriptives, err = s.toolkit.Describe(ds, req.Variables...); err != nil {
		return nil, 0, errors.Wrap(err, "descriptive statistics failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.correlate(ds, req, &in)
	s.normality(ds, req, &in)
	for _, group := range req.GroupColumns {
		s.compare(ds, group, req.Outcome, &in)
	}
	s.chiSquare(ds, req, &in)
	if err := s.metrics(ctx, ds, req, &in); err != nil {
		return nil, 0, err
	}

	md, err := s.builder.Build(ctx, in)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to build report")
	}

	path := filepath.Join(s.cfg.Paths.Output, ReportFileName(ds.Name, start))
	if err := filestore.WriteFile(path, []byte(md)); err != nil {
		return nil, 0, errors.IOError("failed to write report", err)
	}

	rn := &run.Run{
		ID:         core.NewReportID(),
		Dataset:    ds.Name,
		SourcePath: ds.Source,
		ReportPath: path,
		Rows:       ds.Rows(),
		Columns:    len(ds.Columns()),
		Summary: run.Summary{
			Parameters: parameters(req, in.Alpha),
			Findings:   findings(in),
			Notes:      in.Notes,
		},
		CreatedAt: start.UTC(),
		Markdown:  md,
	}
	digest, err := run.FileDigest(req.FilePath)
	if err != nil {
		s.logger.Warn("could not fingerprint %s: %v", req.FilePath, err)
	}
	rn.Fingerprint = run.Fingerprint(digest, rn.Summary.Parameters)

	if s.repo != nil {
		if err := s.repo.Save(ctx, rn); err != nil {
			return nil, 0, errors.DatabaseError("failed to archive report", err)
		}
	}

	s.logger.Info("Report %s written to %s in %s", rn.ID, path, s.now().Sub(start).Round(time.Millisecond))
	skipped := 0
	if in.KPI != nil {
		skipped = len(in.KPI.Skipped)
	}
	return &ReportResult{Run: rn, Path: path, Markdown: md, Notes: in.Notes}, skipped, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ReportFileName returns UNIFIED_ANALYSIS_<dataset>_<timestamp>.md
func ReportFileName(datasetName string, at time.Time) string {
	name := unsafeName.ReplaceAllString(datasetName, "_")
	if name == "" {
		name = "dataset"
	}
	return fmt.Sprintf("UNIFIED_ANALYSIS_%s_%s.md", name, at.Format("20060102_150405"))
}

// normalize fills defaults and checks that every named column exists
func (s *ReportService) normalize(ds *dataset.Dataset, req *ReportRequest) error {
	if len(req.Variables) == 0 {
		req.Variables = ds.NumericNames()
	}
	for _, v := range req.Variables {
		if _, err := ds.Numeric(v); err != nil {
			return err
		}
	}
	if req.Target == "" && len(req.Variables) > 0 {
		req.Target = req.Variables[0]
	}
	if req.Target != "" {
		if _, err := ds.Numeric(req.Target); err != nil {
			return err
		}
	}

	if len(req.GroupColumns) > 0 {
		if req.Outcome == "" {
			req.Outcome = req.Target
		}
		if _, err := ds.Numeric(req.Outcome); err != nil {
			return err
		}
	}
	for _, name := range append(append([]string{}, req.GroupColumns...), req.ChiSquareA, req.ChiSquareB, req.TimeColumn) {
		if name == "" {
			continue
		}
		if _, err := ds.Column(name); err != nil {
			return err
		}
	}
	if (req.ChiSquareA == "") != (req.ChiSquareB == "") {
		return errors.ValidationError("chi-square needs two columns")
	}
	if req.BaselinePeriod == 0 {
		req.BaselinePeriod = DefaultBaselinePeriod
	}
	if req.BaselinePeriod < 2 {
		return errors.ValidationError(fmt.Sprintf("baseline period must be at least 2, got %d", req.BaselinePeriod))
	}
	return nil
}

func (s *ReportService) flagMissing(in *report.Input) {
	limit := s.cfg.Analysis.MaxMissingThreshold * 100
	for _, v := range in.Missing.Variables {
		if v.Percentage > limit {
			in.Notes = append(in.Notes, fmt.Sprintf("%s is %.1f%% missing, above the %.0f%% threshold", v.Name, v.Percentage, limit))
		}
	}
}

func (s *ReportService) correlate(ds *dataset.Dataset, req ReportRequest, in *report.Input) {
	if req.Target == "" {
		return
	}
	var features []string
	for _, v := range req.Variables {
		if v != req.Target {
			features = append(features, v)
		}
	}
	corr, err := s.toolkit.CorrelationAnalysis(ds, req.Target, features...)
	if err != nil {
		s.note(in, "correlation analysis skipped: %v", err)
		return
	}
	in.Correlation = &corr

	if len(req.Variables) >= 2 {
		matrix, err := s.toolkit.CorrelationMatrix(ds, req.Variables...)
		if err != nil {
			s.note(in, "correlation matrix skipped: %v", err)
			return
		}
		in.CorrelationLabels = req.Variables
		in.CorrelationMatrix = matrix
	}
}

func (s *ReportService) normality(ds *dataset.Dataset, req ReportRequest, in *report.Input) {
	for _, v := range req.Variables {
		values, err := ds.Numeric(v)
		if err != nil {
			continue
		}
		res, err := s.toolkit.ShapiroWilk(values)
		if err != nil {
			s.note(in, "normality test for %s skipped: %v", v, err)
			continue
		}
		res.Variable = v
		in.Normality = append(in.Normality, res)
	}
}

func (s *ReportService) compare(ds *dataset.Dataset, groupColumn, outcome string, in *report.Input) {
	nameA, nameB, a, b, err := s.splitGroups(ds, groupColumn, outcome, in)
	if err != nil {
		s.note(in, "group comparison by %s skipped: %v", groupColumn, err)
		return
	}
	tt, err := s.toolkit.IndependentTTest(a, b, 0)
	if err != nil {
		s.note(in, "t-test of %s by %s skipped: %v", outcome, groupColumn, err)
		return
	}
	d, err := s.toolkit.CohensD(a, b)
	if err != nil {
		s.note(in, "effect size of %s by %s skipped: %v", outcome, groupColumn, err)
		return
	}
	in.Comparisons = append(in.Comparisons, report.GroupComparison{
		GroupColumn: groupColumn,
		Outcome:     outcome,
		GroupA:      nameA,
		GroupB:      nameB,
		TTest:       tt,
		CohensD:     d,
	})
}

// splitGroups picks the two groups to compare. Numeric columns with more than two
// distinct values are split at the median (<= median is the lower group); otherwise
// the two most frequent groups are used.
func (s *ReportService) splitGroups(ds *dataset.Dataset, groupColumn, outcome string, in *report.Input) (string, string, []float64, []float64, error) {
	col, err := ds.Column(groupColumn)
	if err != nil {
		return "", "", nil, nil, err
	}

	if col.IsNumeric() && distinct(col) > 2 {
		groupValues, _ := ds.Numeric(groupColumn)
		outcomeValues, err := ds.Numeric(outcome)
		if err != nil {
			return "", "", nil, nil, err
		}
		median, err := mstats.Median(dataset.DropMissing(groupValues))
		if err != nil {
			return "", "", nil, nil, err
		}
		var lower, higher []float64
		for i, g := range groupValues {
			if dataset.IsMissing(g) || dataset.IsMissing(outcomeValues[i]) {
				continue
			}
			if g <= median {
				lower = append(lower, outcomeValues[i])
			} else {
				higher = append(higher, outcomeValues[i])
			}
		}
		return "Lower " + groupColumn, "Higher " + groupColumn, lower, higher, nil
	}

	keys, groups, err := ds.Groups(groupColumn, outcome)
	if err != nil {
		return "", "", nil, nil, err
	}
	if len(keys) < 2 {
		return "", "", nil, nil, core.NewInsufficientDataError("group comparison", len(keys), 2)
	}
	if len(keys) > 2 {
		sort.SliceStable(keys, func(i, j int) bool { return len(groups[keys[i]]) > len(groups[keys[j]]) })
		s.note(in, "%s has %d groups; comparing the two largest (%s, %s)", groupColumn, len(keys), keys[0], keys[1])
	}
	return keys[0], keys[1], groups[keys[0]], groups[keys[1]], nil
}

func distinct(col *dataset.Column) int {
	seen := make(map[string]bool)
	for i := 0; i < col.Len(); i++ {
		if !col.IsMissing(i) {
			seen[col.Text(i)] = true
		}
	}
	return len(seen)
}

func (s *ReportService) chiSquare(ds *dataset.Dataset, req ReportRequest, in *report.Input) {
	if req.ChiSquareA == "" {
		return
	}
	res, err := s.toolkit.ChiSquareTest(ds, req.ChiSquareA, req.ChiSquareB)
	if err != nil {
		s.note(in, "chi-square test skipped: %v", err)
		return
	}
	in.ChiSquare = &report.ChiSquareSection{ColumnA: req.ChiSquareA, ColumnB: req.ChiSquareB, Result: res}
}

type metricOutcome struct {
	kpi        *stats.KPIResult
	anomalies  *stats.AnomalyResult
	skipReason string
}

// metrics runs KPI and anomaly analysis for every metric concurrently, bounded by the
// configured worker count. Results keep request order.
func (s *ReportService) metrics(ctx context.Context, ds *dataset.Dataset, req ReportRequest, in *report.Input) error {
	if len(req.Metrics) == 0 {
		return nil
	}

	timeColumn := req.TimeColumn
	var order []int
	if timeColumn == "" {
		timeColumn = fileOrder
		order = make([]int, ds.Rows())
		for i := range order {
			order[i] = i
		}
	} else {
		var err error
		if order, err = toolkit.TimeOrder(ds, req.TimeColumn); err != nil {
			s.note(in, "KPI analysis skipped: %v", err)
			return nil
		}
	}

	outcomes := make([]metricOutcome, len(req.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Analysis.Workers, 1))
	for i, metric := range req.Metrics {
		i, metric := i, metric
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.toolkit.AnalyzeMetric(ds, order, metric, req.BaselinePeriod)
			if err != nil {
				reason, ok := toolkit.SkipReason(err)
				if !ok {
					return fmt.Errorf("kpi %s: %w", metric, err)
				}
				outcomes[i].skipReason = reason
				return nil
			}
			anomalies, err := s.toolkit.DetectAnomalies(res.Series)
			if err != nil {
				return fmt.Errorf("anomalies %s: %w", metric, err)
			}
			outcomes[i] = metricOutcome{kpi: &res, anomalies: &anomalies}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "metric analysis failed")
	}

	kpi := &stats.KPIReport{TimeColumn: timeColumn, BaselinePeriod: req.BaselinePeriod, Metrics: []stats.KPIResult{}}
	for i, o := range outcomes {
		if o.kpi == nil {
			kpi.Skipped = append(kpi.Skipped, stats.SkippedMetric{Metric: req.Metrics[i], Reason: o.skipReason})
			continue
		}
		kpi.Metrics = append(kpi.Metrics, *o.kpi)
		in.Anomalies = append(in.Anomalies, report.MetricAnomalies{Metric: req.Metrics[i], Result: *o.anomalies})
	}
	in.KPI = kpi
	return nil
}

func (s *ReportService) note(in *report.Input, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn("%s", msg)
	in.Notes = append(in.Notes, msg)
}

func parameters(req ReportRequest, alpha float64) run.Parameters {
	p := run.Parameters{
		Variables:      req.Variables,
		Target:         req.Target,
		GroupColumn:    strings.Join(req.GroupColumns, ","),
		Outcome:        req.Outcome,
		Metrics:        req.Metrics,
		TimeColumn:     req.TimeColumn,
		BaselinePeriod: req.BaselinePeriod,
		Alpha:          alpha,
	}
	if req.ChiSquareA != "" {
		p.ChiSquare = []string{req.ChiSquareA, req.ChiSquareB}
	}
	return p
}

// findings condenses the headline results for the archive summary
func findings(in report.Input) []string {
	var out []string
	if c := in.Correlation; c != nil && c.Strongest != "" {
		top, _ := c.Lookup(c.Strongest)
		out = append(out, fmt.Sprintf("Strongest correlate of %s: %s (r=%.3f, %s)", c.Target, top.Feature, top.Correlation, top.Interpretation))
	}
	for _, cmp := range in.Comparisons {
		out = append(out, fmt.Sprintf("%s by %s: %s difference, d=%.2f (%s)", cmp.Outcome, cmp.GroupColumn,
			stats.SignificanceWord(cmp.TTest.PValue, in.Alpha), cmp.CohensD, stats.EffectSizeLabel(cmp.CohensD)))
	}
	if c := in.ChiSquare; c != nil {
		out = append(out, fmt.Sprintf("%s × %s: %s association (p=%.3f)", c.ColumnA, c.ColumnB,
			stats.SignificanceWord(c.Result.PValue, in.Alpha), c.Result.PValue))
	}
	if in.KPI != nil {
		for _, m := range in.KPI.Metrics {
			out = append(out, fmt.Sprintf("%s: %s", m.Metric, m.Interpretation))
		}
	}
	for _, a := range in.Anomalies {
		if a.Result.Count() > 0 {
			out = append(out, fmt.Sprintf("%s: %d anomalies", a.Metric, a.Result.Count()))
		}
	}
	return out
}
