// Package storage writes the artifacts of a Customer 360 run.
//
// The primary dataset goes through a [Writer]. Writers are selected by
// capability probing: the preferred columnar writer is used when it probes
// successfully, otherwise the delimited-text writer takes over with the same
// columns in the same order. All files are written to a temporary name and
// renamed into place, so a failed run never leaves a partial dataset behind.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/JonMunkholm/customer360/internal/logging"
)

// Output formats.
const (
	FormatAuto    = "auto"
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Artifact file names.
const (
	ParquetFileName    = "customer_360.parquet"
	CSVFileName        = "customer_360.csv"
	RejectionsFileName = "rejected_transactions.log"
	SummaryFileName    = "README.md"
)

// ErrFormatUnsupported is returned when a writer cannot produce its format
// in this environment. It is the one error that triggers a fallback.
var ErrFormatUnsupported = errors.New("output format unsupported")

// Writer saves the merged dataset in one format.
type Writer interface {
	// Format names the encoding, e.g. "parquet".
	Format() string
	// Probe reports whether the writer can work here. A nil error means yes.
	Probe() error
	// Save writes rows into dir and returns the file path.
	Save(ctx context.Context, dir string, rows []core.Customer360) (string, error)
}

// SelectWriter returns the writer to use for format.
// For FormatAuto the first writer that probes successfully wins; for a named
// format that writer is tried first and the rest serve as fallbacks.
func SelectWriter(format string, writers ...Writer) (Writer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatAuto
	}

	candidates := writers
	if format != FormatAuto {
		candidates = make([]Writer, 0, len(writers))
		for _, w := range writers {
			if w.Format() == format {
				candidates = append(candidates, w)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("unknown output format %q", format)
		}
		for _, w := range writers {
			if w.Format() != format {
				candidates = append(candidates, w)
			}
		}
	}

	var errs []error
	for _, w := range candidates {
		if err := w.Probe(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Format(), err))
			continue
		}
		return w, nil
	}
	return nil, fmt.Errorf("no usable output writer: %w", errors.Join(errs...))
}

// Sink writes every artifact of a run into one directory.
type Sink struct {
	dir      string
	primary  Writer
	fallback Writer
	used     Writer
}

// NewSink selects the dataset writer for format and prepares dir.
func NewSink(dir, format string) (*Sink, error) {
	csvWriter := NewCSVWriter()

	primary, err := SelectWriter(format, NewParquetWriter(), csvWriter)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return newSink(dir, primary, csvWriter), nil
}

func newSink(dir string, primary, fallback Writer) *Sink {
	if fallback != nil && fallback.Format() == primary.Format() {
		fallback = nil
	}
	return &Sink{dir: dir, primary: primary, fallback: fallback, used: primary}
}

// Dir returns the output directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Format returns the format of the last dataset written (or the one that will be).
func (s *Sink) Format() string {
	return s.used.Format()
}

// Save writes the merged dataset, falling back to the delimited writer if the
// primary writer turns out to be unsupported.
func (s *Sink) Save(ctx context.Context, rows []core.Customer360) (string, error) {
	path, err := s.primary.Save(ctx, s.dir, rows)
	if err == nil {
		s.used = s.primary
		return path, nil
	}
	if !errors.Is(err, ErrFormatUnsupported) || s.fallback == nil {
		return "", err
	}

	logging.FromContext(ctx).Warn("primary output format unavailable, using fallback",
		"format", s.primary.Format(),
		"fallback", s.fallback.Format(),
		"error", err,
	)

	path, err = s.fallback.Save(ctx, s.dir, rows)
	if err != nil {
		return "", err
	}
	s.used = s.fallback
	return path, nil
}

// SaveRejections writes the rejection audit log.
func (s *Sink) SaveRejections(ctx context.Context, rejections []core.Rejection) (string, error) {
	return writeAtomic(s.dir, RejectionsFileName, func(w io.Writer) error {
		return WriteRejections(w, rejections)
	})
}

// SaveSummary writes the human-readable run summary.
func (s *Sink) SaveSummary(ctx context.Context, summary core.RunSummary) (string, error) {
	return writeAtomic(s.dir, SummaryFileName, func(w io.Writer) error {
		return WriteSummary(w, summary)
	})
}

// writeAtomic writes name in dir through a temporary file and renames it
// into place once write succeeds.
func writeAtomic(dir, name string, write func(io.Writer) error) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	path = filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
