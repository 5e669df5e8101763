// Package lineio carries the game's newline-delimited transport: one JSON
// observation per input line, one move per output line.
package lineio

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// MaxLineBytes bounds a single observation line.
const MaxLineBytes = 4 << 20

// Reader yields observation lines. The blocking scan runs on its own
// goroutine so a waiting Next can be cancelled.
type Reader struct {
	scanner *bufio.Scanner
	once    sync.Once
	lines   chan result
}

type result struct {
	line []byte
	err  error
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &Reader{scanner: scanner, lines: make(chan result, 1)}
}

// Next returns the next non-blank line without its terminator. At end of
// input it returns io.EOF; when ctx ends first it returns ctx.Err().
func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	r.once.Do(func() { go r.pump() })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-r.lines:
		if !ok {
			return nil, io.EOF
		}
		return res.line, res.err
	}
}

// pump reads at most one line ahead of the consumer and exits once the
// input ends or fails.
func (r *Reader) pump() {
	defer close(r.lines)
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r.lines <- result{line: bytes.Clone(line)}
	}
	if err := r.scanner.Err(); err != nil {
		r.lines <- result{err: err}
	}
}

// Writer emits move lines, flushing after each so the game sees the move
// immediately.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteMove(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
