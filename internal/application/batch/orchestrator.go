// Package batch runs the analyzers over a list of domains, one domain at a
// time, folding every per-domain and per-analysis failure into the result.
package batch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/netdiag/internal/checker"
	"github.com/khanhnv2901/netdiag/internal/registration"
	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
	"github.com/khanhnv2901/netdiag/internal/validate"
)

// AnalysisType selects which analyzers run for each domain.
type AnalysisType string

const (
	AnalysisDNS   AnalysisType = "dns"
	AnalysisRDAP  AnalysisType = "rdap"
	AnalysisWHOIS AnalysisType = "whois"
	AnalysisHost  AnalysisType = "host"
	AnalysisAll   AnalysisType = "all"
)

// Status of one domain in a batch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DNSAnalyzer is the part of checker.DNSChecker used by batches.
type DNSAnalyzer interface {
	LookupRecords(ctx context.Context, domain string, types []checker.RecordType) (*checker.DNSResult, error)
}

// RegistrationAnalyzer is the part of registration.Resolver used by batches.
type RegistrationAnalyzer interface {
	LookupDomain(ctx context.Context, domain string) (*registration.RegistrationRecord, error)
	LookupWHOIS(ctx context.Context, domain string) (*registration.RegistrationRecord, error)
}

// HostAnalyzer is the part of checker.HostChecker used by batches.
type HostAnalyzer interface {
	Ping(ctx context.Context, host string, locations []string) ([]checker.PingResult, error)
	CheckSSL(ctx context.Context, target string) (*checker.SSLResult, error)
}

// Section holds either the data of one analysis or its error message.
type Section[T any] struct {
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// DomainReport collects the analyses requested for one domain. Each field is
// written by exactly one analysis.
type DomainReport struct {
	DNS   *Section[*checker.DNSResult]               `json:"dns,omitempty"`
	RDAP  *Section[*registration.RegistrationRecord] `json:"rdap,omitempty"`
	WHOIS *Section[*registration.RegistrationRecord] `json:"whois,omitempty"`
	Ping  *Section[[]checker.PingResult]             `json:"ping,omitempty"`
	SSL   *Section[*checker.SSLResult]               `json:"ssl,omitempty"`
}

// Result is the outcome for one input domain.
type Result struct {
	Domain string        `json:"domain"`
	Status Status        `json:"status"`
	Report *DomainReport `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Options for ProcessBatch.
type Options struct {
	AnalysisTypes []AnalysisType
	Progress      ProgressFunc // Overrides WithProgress for this call
}

// Orchestrator composes the analyzers per domain.
type Orchestrator struct {
	dns          DNSAnalyzer
	registration RegistrationAnalyzer
	host         HostAnalyzer

	maxSize  int
	limiter  *rate.Limiter
	logger   *zap.Logger
	progress ProgressFunc
}

// ProgressFunc is called after each domain with its position and result.
type ProgressFunc func(index int, result Result, elapsed time.Duration)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxSize overrides the batch size limit.
func WithMaxSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithRate paces domains at perSecond; zero or less leaves them unpaced.
func WithRate(perSecond float64) Option {
	return func(o *Orchestrator) {
		if perSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			o.limiter = nil
		}
	}
}

// WithProgress registers fn to observe each finished domain.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(dns DNSAnalyzer, reg RegistrationAnalyzer, host HostAnalyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dns:          dns,
		registration: reg,
		host:         host,
		maxSize:      constants.MaxBatchSize,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxSize returns the configured batch size limit.
func (o *Orchestrator) MaxSize() int {
	return o.maxSize
}

// ParseDomainsInput splits raw on newlines and commas, trims each entry and
// drops empties. Order is preserved.
func ParseDomainsInput(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	domains := make([]string, 0, len(fields))
	for _, f := range fields {
		if d := strings.TrimSpace(f); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

// ValidateBatchSize rejects empty batches and batches over the limit.
func (o *Orchestrator) ValidateBatchSize(domains []string) error {
	return validateBatchSize(domains, o.maxSize)
}

func validateBatchSize(domains []string, limit int) error {
	if len(domains) == 0 {
		return diagerrors.New(diagerrors.CodeEmptyBatch, "batch must contain at least one domain")
	}
	if len(domains) > limit {
		return diagerrors.Newf(diagerrors.CodeBatchSizeExceeded,
			"batch size exceeds the limit of %d domains (got %d)", limit, len(domains)).
			WithDetail("limit", limit).
			WithDetail("count", len(domains))
	}
	return nil
}

// ParseAnalysisTypes normalizes names into analysis types; "all" expands to
// every type. An empty list means dns.
func ParseAnalysisTypes(names []string) ([]AnalysisType, error) {
	if len(names) == 0 {
		return []AnalysisType{AnalysisDNS}, nil
	}
	seen := make(map[AnalysisType]bool)
	var types []AnalysisType
	for _, name := range names {
		t := AnalysisType(strings.ToLower(strings.TrimSpace(name)))
		switch t {
		case AnalysisAll:
			return []AnalysisType{AnalysisDNS, AnalysisRDAP, AnalysisWHOIS, AnalysisHost}, nil
		case AnalysisDNS, AnalysisRDAP, AnalysisWHOIS, AnalysisHost:
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		default:
			return nil, diagerrors.Newf(diagerrors.CodeValidation, "unsupported analysis type %q", name).
				WithDetail("analysisType", name)
		}
	}
	return types, nil
}

// ProcessBatch validates the batch size, then analyzes the domains one after
// another. It returns exactly one Result per input domain, in input order.
// Only size validation fails the whole call; domains the pacer could not
// reach before ctx ended are reported as errors.
func (o *Orchestrator) ProcessBatch(ctx context.Context, domains []string, opts Options) ([]Result, error) {
	if err := o.ValidateBatchSize(domains); err != nil {
		return nil, err
	}
	types, err := expandTypes(opts.AnalysisTypes)
	if err != nil {
		return nil, err
	}

	progress := o.progress
	if opts.Progress != nil {
		progress = opts.Progress
	}

	start := time.Now()
	results := make([]Result, len(domains))
	for i, domain := range domains {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				o.logger.Warn("batch pacing interrupted",
					zap.Int("index", i),
					zap.Int("remaining", len(domains)-i),
					zap.Error(err))
				o.abandon(results[i:], domains[i:], i, err, progress)
				break
			}
		}
		domainStart := time.Now()
		results[i] = o.processDomain(ctx, domain, types)
		if progress != nil {
			progress(i, results[i], time.Since(domainStart))
		}
		o.logger.Info("batch domain processed",
			zap.Int("index", i),
			zap.String("domain", domain),
			zap.String("status", string(results[i].Status)))
	}

	o.logger.Info("batch completed",
		zap.Int("domains", len(domains)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

// abandon fills the slots of domains that were never analyzed.
func (o *Orchestrator) abandon(slots []Result, domains []string, offset int, cause error, progress ProgressFunc) {
	msg := diagerrors.SafeMessage(diagerrors.Wrap(diagerrors.CodeTimeout,
		"batch stopped before this domain was analyzed", cause))
	for j := range slots {
		slots[j] = Result{Domain: domains[j], Status: StatusError, Error: msg}
		if progress != nil {
			progress(offset+j, slots[j], 0)
		}
	}
}

func expandTypes(types []AnalysisType) ([]AnalysisType, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return ParseAnalysisTypes(names)
}

// processDomain never panics and never returns an error: both end up in the
// Result.
func (o *Orchestrator) processDomain(ctx context.Context, raw string, types []AnalysisType) (result Result) {
	result = Result{Domain: raw}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("batch domain panicked", zap.String("domain", raw), zap.Any("panic", r))
			result = Result{Domain: raw, Status: StatusError, Error: "internal error"}
		}
	}()

	domain, err := validate.Domain(raw)
	if err != nil {
		result.Status = StatusError
		result.Error = diagerrors.SafeMessage(err)
		return result
	}

	report := &DomainReport{}
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range types {
		switch t {
		case AnalysisDNS:
			report.DNS = &Section[*checker.DNSResult]{}
			g.Go(func() error {
				runSection(report.DNS, func() (*checker.DNSResult, error) {
					return o.dns.LookupRecords(gctx, domain, nil)
				})
				return nil
			})
		case AnalysisRDAP:
			report.RDAP = &Section[*registration.RegistrationRecord]{}
			g.Go(func() error {
				runSection(report.RDAP, func() (*registration.RegistrationRecord, error) {
					return o.registration.LookupDomain(gctx, domain)
				})
				return nil
			})
		case AnalysisWHOIS:
			report.WHOIS = &Section[*registration.RegistrationRecord]{}
			g.Go(func() error {
				runSection(report.WHOIS, func() (*registration.RegistrationRecord, error) {
					return o.registration.LookupWHOIS(gctx, domain)
				})
				return nil
			})
		case AnalysisHost:
			report.Ping = &Section[[]checker.PingResult]{}
			report.SSL = &Section[*checker.SSLResult]{}
			g.Go(func() error {
				runSection(report.Ping, func() ([]checker.PingResult, error) {
					return o.host.Ping(gctx, domain, nil)
				})
				return nil
			})
			g.Go(func() error {
				runSection(report.SSL, func() (*checker.SSLResult, error) {
					return o.host.CheckSSL(gctx, domain)
				})
				return nil
			})
		}
	}
	_ = g.Wait()

	result.Status = StatusSuccess
	result.Report = report
	return result
}

// runSection stores fn's data or error message in s. A panic inside one
// analysis is confined to its section.
func runSection[T any](s *Section[T], fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			s.Error = "internal error"
		}
	}()
	data, err := fn()
	if err != nil {
		s.Error = diagerrors.SafeMessage(err)
		return
	}
	s.Data = data
}

// Summary aggregates a batch.
type Summary struct {
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Results    []SummaryResult `json:"results"`
}

// SummaryResult is the thin per-domain projection in a Summary.
type SummaryResult struct {
	Domain string `json:"domain"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// FormatSummary counts successes and failures.
func FormatSummary(results []Result) Summary {
	summary := Summary{
		Total:   len(results),
		Results: make([]SummaryResult, 0, len(results)),
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, SummaryResult{Domain: r.Domain, Status: r.Status, Error: r.Error})
	}
	return summary
}
