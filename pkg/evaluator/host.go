package evaluator

import (
	"bufio"
	"fmt"
	"io"
)

// OutputSink accepts program output one line at a time.
type OutputSink interface {
	WriteLine(line string) error
}

// InputSource yields one line of input per request. It returns io.EOF when
// no input remains.
type InputSource interface {
	ReadLine() (string, error)
}

// Host bundles the I/O endpoints available to builtins.
type Host struct {
	Out OutputSink
	In  InputSource
}

type writerSink struct {
	w io.Writer
}

// NewWriterSink returns an OutputSink that writes each line followed by '\n'.
func NewWriterSink(w io.Writer) OutputSink {
	return &writerSink{w: w}
}

func (s *writerSink) WriteLine(line string) error {
	_, err := fmt.Fprintln(s.w, line)
	return err
}

type readerSource struct {
	sc *bufio.Scanner
}

// NewReaderSource returns an InputSource reading newline-terminated lines
// from r. bufio.ScanLines drops a trailing '\r'.
func NewReaderSource(r io.Reader) InputSource {
	return &readerSource{sc: bufio.NewScanner(r)}
}

func (s *readerSource) ReadLine() (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// LineBuffer is an in-memory OutputSink that records every line.
type LineBuffer struct {
	Lines []string
}

func (b *LineBuffer) WriteLine(line string) error {
	b.Lines = append(b.Lines, line)
	return nil
}

// LineQueue is an in-memory InputSource serving a fixed list of lines.
type LineQueue struct {
	lines []string
}

// NewLineQueue creates a LineQueue serving lines in order.
func NewLineQueue(lines ...string) *LineQueue {
	return &LineQueue{lines: lines}
}

func (q *LineQueue) ReadLine() (string, error) {
	if len(q.lines) == 0 {
		return "", io.EOF
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	return line, nil
}
