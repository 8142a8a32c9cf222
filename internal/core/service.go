package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/customer360/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sink persists the artifacts of a run.
// The core only ever hands it finished datasets.
type Sink interface {
	// Format names the encoding used for the primary dataset.
	Format() string
	Save(ctx context.Context, rows []Customer360) (string, error)
	SaveRejections(ctx context.Context, rejections []Rejection) (string, error)
	SaveSummary(ctx context.Context, summary RunSummary) (string, error)
}

// Loader copies the merged dataset into a database. Optional.
type Loader interface {
	Load(ctx context.Context, rows []Customer360) (int64, error)
}

// Service runs the Customer 360 build.
type Service struct {
	sink        Sink
	loader      Loader
	maxFileSize int64
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLoader adds a database loader that receives the merged dataset.
func WithLoader(l Loader) ServiceOption {
	return func(s *Service) { s.loader = l }
}

// WithMaxFileSize rejects sources larger than n bytes. n <= 0 disables the check.
func WithMaxFileSize(n int64) ServiceOption {
	return func(s *Service) { s.maxFileSize = n }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service instance.
func NewService(sink Sink, opts ...ServiceOption) (*Service, error) {
	if sink == nil {
		return nil, errors.New("service: sink is required")
	}

	s := &Service{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run reads the three sources concurrently, merges them, loads the database
// when a loader is set, and writes every artifact. A source or load failure
// aborts the run before anything is written.
func (s *Service) Run(ctx context.Context, src Sources) (*RunSummary, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	summary := &RunSummary{
		RunID:        runID,
		StartedAt:    s.now().UTC(),
		Sources:      src,
		OutputFormat: s.sink.Format(),
	}
	logger.Info("run started", "phase", PhaseStarting)

	var (
		leads     LeadResult
		activity  ActivityResult
		tx        TransactionResult
		bytesRead atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.stage(gctx, "leads", src.Leads, &bytesRead, func(r io.Reader) (err error) {
		leads, err = NormalizeLeads(r)
		return err
	}))
	g.Go(s.stage(gctx, "activity", src.Activity, &bytesRead, func(r io.Reader) (err error) {
		activity, err = AggregateActivity(r)
		return err
	}))
	g.Go(s.stage(gctx, "transactions", src.Transactions, &bytesRead, func(r io.Reader) (err error) {
		tx, err = ValidateTransactions(r)
		return err
	}))

	if err := g.Wait(); err != nil {
		logger.Error("run failed", "phase", PhaseFailed, "error", err)
		return nil, err
	}

	summary.Leads = leads.Stats
	summary.Activity = activity.Stats
	summary.Transactions = tx.Stats
	summary.BytesRead = bytesRead.Load()

	logger.Info("merging datasets",
		"phase", PhaseMerging,
		"leads", len(leads.Leads),
		"activity_identities", len(activity.Summaries),
		"transaction_identities", len(tx.Summaries),
	)
	merged := Merge(leads.Leads, activity.Summaries, tx.Summaries)
	summary.Customers = len(merged)

	if s.loader != nil {
		n, err := s.loader.Load(ctx, merged)
		if err != nil {
			return nil, fmt.Errorf("load database: %w", err)
		}
		summary.LoadedRows = n
		logger.Info("dataset loaded into database", "rows", n)
	}

	logger.Info("writing outputs", "phase", PhaseWriting, "format", s.sink.Format())

	path, err := s.sink.Save(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	summary.OutputFormat = s.sink.Format()
	summary.Artifacts = append(summary.Artifacts, path)

	path, err = s.sink.SaveRejections(ctx, tx.Rejections)
	if err != nil {
		return nil, fmt.Errorf("save rejections: %w", err)
	}
	summary.Artifacts = append(summary.Artifacts, path)

	summary.FinishedAt = s.now().UTC()
	path, err = s.sink.SaveSummary(ctx, *summary)
	if err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	summary.Artifacts = append(summary.Artifacts, path)

	logger.Info("run completed",
		"phase", PhaseComplete,
		"customers", summary.Customers,
		"rejections", len(tx.Rejections),
		"duration", summary.Duration(),
	)

	return summary, nil
}

// stage returns an errgroup task that reads one source and hands it to parse.
func (s *Service) stage(ctx context.Context, name, path string, bytesRead *atomic.Int64, parse func(io.Reader) error) func() error {
	return func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := logging.WithFields(ctx, "source", name, "path", path)
		logger.Info("reading source", "phase", PhaseReading)
		start := time.Now()

		source, err := ReadSource(path, s.maxFileSize)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		bytesRead.Add(source.BytesRead)

		if err := parse(source.Reader()); err != nil {
			return err
		}

		logger.Info("source processed", "bytes", source.BytesRead, "elapsed", time.Since(start))
		return nil
	}
}
