package playlist

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

const (
	// chunkSize is the size of a single read from the source.
	chunkSize = 1024
	// MaxLineLength bounds a logical line. Longer lines are reassembled
	// from chunks up to this size and rejected beyond it.
	MaxLineLength = 64 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LineReader returns the non-blank lines of a text source with surrounding
// whitespace removed.
type LineReader struct {
	r    *bufio.Reader
	line int
}

// NewLineReader returns a reader over r. A nil r yields a reader whose Next
// always fails with ErrNotReady.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		return &LineReader{}
	}
	return &LineReader{r: bufio.NewReaderSize(r, chunkSize)}
}

// LineNumber returns the physical number of the last line read, counting
// blank lines.
func (lr *LineReader) LineNumber() int {
	if lr == nil {
		return 0
	}
	return lr.line
}

// Next returns the next non-blank line. It returns io.EOF at the end of the
// source, and also without reading anything once ctx is done.
func (lr *LineReader) Next(ctx context.Context) (string, error) {
	if lr == nil || lr.r == nil {
		return "", ErrNotReady
	}
	for {
		if ctx.Err() != nil {
			return "", io.EOF
		}
		raw, err := lr.readLine()
		if len(raw) == 0 && err != nil {
			return "", err
		}
		lr.line++
		if lr.line == 1 {
			raw = bytes.TrimPrefix(raw, utf8BOM)
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// readLine reassembles one physical line from chunk-sized reads. The
// returned error is io.EOF when the source ended on this line.
func (lr *LineReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > MaxLineLength {
			lr.line++
			if errors.Is(err, bufio.ErrBufferFull) {
				lr.discardLine()
			}
			return nil, ErrLineTooLong
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return line, err
	}
}

// discardLine skips the rest of an over-long line so the reader stays
// aligned on line boundaries.
func (lr *LineReader) discardLine() {
	for {
		if _, err := lr.r.ReadSlice('\n'); !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}
