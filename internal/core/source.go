package core

// source.go reads an input file completely before any parsing starts.
//
// Every source is read once, fully, and cleaned of the usual export artifacts:
//   - UTF-8 BOM (0xEF 0xBB 0xBF) from Windows tools is stripped
//   - Invalid UTF-8 sequences are replaced with U+FFFD
//
// A read failure is fatal to the run, so nothing here retries.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is the cleaned content of one input file.
type Source struct {
	Path      string
	Data      []byte
	BytesRead int64
}

// Reader returns a fresh reader over the source content.
func (s *Source) Reader() io.Reader {
	return bytes.NewReader(s.Data)
}

// ReadSource reads the file at path. maxSize <= 0 disables the size check.
func ReadSource(path string, maxSize int64) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if maxSize > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("%s (%d bytes, limit %d): %w", path, info.Size(), maxSize, ErrSourceTooLarge)
		}
	}

	return readSource(path, f, maxSize)
}

func readSource(path string, r io.Reader, maxSize int64) (*Source, error) {
	counter := &countingReader{reader: r}

	var src io.Reader = counter
	if maxSize > 0 {
		// One byte past the limit tells us the file grew after Stat.
		src = io.LimitReader(counter, maxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w", path, ErrSourceTooLarge)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	return &Source{Path: path, Data: data, BytesRead: counter.n}, nil
}

// sanitizeUTF8 replaces each invalid byte with U+FFFD.
// Valid input is returned as-is without copying.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.Write(data[:size])
		}
		data = data[size:]
	}

	return buf.Bytes()
}

// countingReader tracks bytes read from the underlying reader.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	return n, err
}
