package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/customer360/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWriter is a Writer with scripted probe and save results.
type stubWriter struct {
	format   string
	probeErr error
	saveErr  error
	saved    int
}

func (s *stubWriter) Format() string { return s.format }
func (s *stubWriter) Probe() error { return s.probeErr }

func (s *stubWriter) Save(_ context.Context, dir string, rows []core.Customer360) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = len(rows)
	return filepath.Join(dir, "out."+s.format), nil
}

func TestSelectWriter(t *testing.T) {
	columnar := &stubWriter{format: FormatParquet}
	broken := &stubWriter{format: FormatParquet, probeErr: errors.New("no encoder")}
	text := &stubWriter{format: FormatCSV}

	tests := []struct {
		name    string
		format  string
		writers []Writer
		want    string
		wantErr bool
	}{
		{"auto prefers first", FormatAuto, []Writer{columnar, text}, FormatParquet, false},
		{"empty means auto", "", []Writer{columnar, text}, FormatParquet, false},
		{"auto falls back on probe failure", FormatAuto, []Writer{broken, text}, FormatCSV, false},
		{"named format", "csv", []Writer{columnar, text}, FormatCSV, false},
		{"named format is case insensitive", " CSV ", []Writer{columnar, text}, FormatCSV, false},
		{"named format falls back", FormatParquet, []Writer{broken, text}, FormatCSV, false},
		{"unknown format", "xlsx", []Writer{columnar, text}, "", true},
		{"nothing usable", FormatAuto, []Writer{broken}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectWriter(tt.format, tt.writers...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format())
		})
	}
}

func TestSink_SaveFallsBackWhenUnsupported(t *testing.T) {
	primary := &stubWriter{format: FormatParquet, saveErr: ErrFormatUnsupported}
	fallback := &stubWriter{format: FormatCSV}
	sink := newSink(t.TempDir(), primary, fallback)

	assert.Equal(t, FormatParquet, sink.Format())

	path, err := sink.Save(context.Background(), make([]core.Customer360, 3))
	require.NoError(t, err)
	assert.Equal(t, "out.csv", filepath.Base(path))
	assert.Equal(t, 3, fallback.saved)
	assert.Equal(t, FormatCSV, sink.Format())
}

func TestSink_SaveOtherErrorsAreFatal(t *testing.T) {
	primary := &stubWriter{format: FormatParquet, saveErr: errors.New("disk full")}
	fallback := &stubWriter{format: FormatCSV}
	sink := newSink(t.TempDir(), primary, fallback)

	_, err := sink.Save(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 0, fallback.saved)
}

func TestSink_NoFallbackToSelf(t *testing.T) {
	text := &stubWriter{format: FormatCSV, saveErr: ErrFormatUnsupported}
	sink := newSink(t.TempDir(), text, text)

	_, err := sink.Save(context.Background(), nil)
	assert.ErrorIs(t, err, ErrFormatUnsupported)
}

func TestNewSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	sink, err := NewSink(dir, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, dir, sink.Dir())
	assert.Equal(t, FormatCSV, sink.Format())
	assert.DirExists(t, dir)

	_, err = NewSink(dir, "xml")
	assert.Error(t, err)
}

func TestSink_WritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, FormatCSV)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := sink.Save(ctx, []core.Customer360{{Email: core.NormalizeEmail("a@x.com")}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CSVFileName), path)

	path, err = sink.SaveRejections(ctx, []core.Rejection{{TransactionID: "t1", Reason: core.ReasonInvalidStatus}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, RejectionsFileName), path)

	path, err = sink.SaveSummary(ctx, core.RunSummary{RunID: "run-1", OutputFormat: sink.Format()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SummaryFileName), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary files left behind")
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()

	path, err := writeAtomic(dir, "file.txt", func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("previous"), 0o644))

	boom := errors.New("boom")
	_, err := writeAtomic(dir, "file.txt", func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

type failingLoader struct{ err error }

func (l failingLoader) Load(context.Context, []core.Customer360) (int64, error) {
	return 0, l.err
}

func TestSink_FailedLoadWritesNothing(t *testing.T) {
	in := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(in, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	src := core.Sources{
		Leads:        write("crm_leads.csv", "user_uuid,email,name,created_at\n11111111-1111-1111-1111-111111111111,a@x.com,ann,2024-01-01\n"),
		Activity:     write("web_activity.json", ""),
		Transactions: write("transactions.txt", "transaction_id|user_uuid|amount|status|timestamp\nt1|bad|5|completed|2024-01-01\n"),
	}

	out := t.TempDir()
	sink, err := NewSink(out, FormatAuto)
	require.NoError(t, err)

	refused := errors.New("connection refused")
	svc, err := core.NewService(sink, core.WithLoader(failingLoader{err: refused}))
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), src)
	require.ErrorIs(t, err, refused)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
