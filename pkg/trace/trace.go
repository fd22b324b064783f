// Package trace writes evaluator trace events as NDJSON and summarizes
// trace files.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/thomasrohde/brewin/pkg/evaluator"
)

// Writer encodes trace events, one JSON object per line.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Emit writes one event. After the first write error further events are
// dropped; Err reports that error.
func (w *Writer) Emit(ev evaluator.TraceEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(ev); err != nil {
		w.err = errors.Wrap(err, "write trace event")
	}
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Summary aggregates the events of one trace file.
type Summary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	InvalidLines   int            `json:"invalidLines,omitempty"`
	Statements     int            `json:"statements"`
	FunctionCalls  int            `json:"functionCalls"`
	CallsByName    map[string]int `json:"callsByName"`
	BuiltinCalls   int            `json:"builtinCalls"`
	BuiltinsByName map[string]int `json:"builtinsByName"`
	Loops          int            `json:"loops"`
	Iterations     int64          `json:"iterations"`
	OK             *bool          `json:"ok,omitempty"`
	ErrorCode      string         `json:"errorCode,omitempty"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// Summarize reads an NDJSON trace from r. Lines that are not valid JSON are
// counted and skipped.
func Summarize(r io.Reader) (*Summary, error) {
	summary := &Summary{
		CallsByName:    make(map[string]int),
		BuiltinsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			summary.InvalidLines++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.OK = &ok
			}
			if code, found := event.Data["code"].(string); found {
				summary.ErrorCode = code
			}
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TraceFnCallStart:
			summary.FunctionCalls++
			if name, ok := event.Data["name"].(string); ok {
				summary.CallsByName[name]++
			}
		case evaluator.TraceBuiltinCall:
			summary.BuiltinCalls++
			if name, ok := event.Data["name"].(string); ok {
				summary.BuiltinsByName[name]++
			}
		case evaluator.TraceWhileEnd:
			summary.Loops++
			// JSON numbers decode as float64.
			if n, ok := event.Data["iterations"].(float64); ok {
				summary.Iterations += int64(n)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, errors.Wrap(err, "read trace")
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

// WriteText renders s for humans.
func (s *Summary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	if s.InvalidLines > 0 {
		fmt.Fprintf(w, "Invalid lines: %d\n", s.InvalidLines)
	}
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Calls: %d\n", s.FunctionCalls)
	writeCounts(w, s.CallsByName)
	fmt.Fprintf(w, "Builtins: %d\n", s.BuiltinCalls)
	writeCounts(w, s.BuiltinsByName)
	fmt.Fprintf(w, "Loops: %d (%d iterations)\n", s.Loops, s.Iterations)
	switch {
	case s.OK == nil:
		fmt.Fprintln(w, "Result: incomplete")
	case *s.OK:
		fmt.Fprintln(w, "Result: ok")
	default:
		fmt.Fprintf(w, "Result: failed %s\n", s.ErrorCode)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func writeCounts(w io.Writer, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, counts[name])
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
