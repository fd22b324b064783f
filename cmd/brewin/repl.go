package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/help"
	"github.com/thomasrohde/brewin/pkg/parser"
	"github.com/thomasrohde/brewin/pkg/runtime"
)

const (
	promptMain  = "brewin> "
	promptCont  = "   ...> "
	historyFile = ".brewin_history"
)

const replHelp = `REPL commands:
  :help         show this help
  :funcs        list defined function signatures
  :stats        show calls, iterations and deepest call
  :load FILE    evaluate a file in this session
  :doc [TOPIC]  language reference
  :quit         leave (Ctrl+D works too)

Enter statements or function declarations. Unfinished input continues on
the next line; Ctrl+C discards it.
`

// lineReader is the part of liner.State the REPL loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type historian interface {
	AppendHistory(item string)
}

// promptSource feeds inputi from the line editor so both share the terminal.
type promptSource struct {
	r lineReader
}

func (p promptSource) ReadLine() (string, error) {
	line, err := p.r.Prompt("")
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (c *cli) cmdRepl(ctx context.Context) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	c.replLoop(ctx, c.newReplSession(ln), ln)

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return runtime.ExitOK
}

func (c *cli) newReplSession(r lineReader) *runtime.Session {
	rt := runtime.New(
		runtime.WithStdout(c.stdout),
		runtime.WithInputSource(promptSource{r: r}),
		runtime.WithLogger(c.logger),
		runtime.WithConfig(c.cfg),
	)
	return rt.NewSession()
}

func (c *cli) replLoop(ctx context.Context, s *runtime.Session, r lineReader) {
	fmt.Fprintf(c.stdout, "Brewin %s. Type :help for commands.\n", help.Version)

	for {
		src, ok := readInput(r)
		if !ok {
			fmt.Fprintln(c.stdout)
			return
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if h, ok := r.(historian); ok {
			h.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		}

		if strings.HasPrefix(trimmed, ":") {
			if done := c.replCommand(ctx, s, trimmed); done {
				return
			}
			continue
		}
		c.replEval(ctx, s, src)
	}
}

func (c *cli) replEval(ctx context.Context, s *runtime.Session, src string) {
	res, err := s.Eval(ctx, src)
	if res != nil {
		for _, key := range res.Defined {
			fmt.Fprintf(c.stdout, "defined %s\n", key)
		}
	}
	if err != nil {
		c.report(err)
		return
	}
	if res.Value != nil && res.Value.Type() != evaluator.TypeNil {
		fmt.Fprintln(c.stdout, res.Value.String())
	}
}

// replCommand handles a ':' command and reports whether the REPL should exit.
func (c *cli) replCommand(ctx context.Context, s *runtime.Session, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":exit", ":q":
		return true
	case ":help":
		fmt.Fprint(c.stdout, replHelp)
	case ":funcs":
		sigs := s.Functions()
		if len(sigs) == 0 {
			fmt.Fprintln(c.stdout, "no functions defined")
		}
		for _, sig := range sigs {
			fmt.Fprintln(c.stdout, sig)
		}
	case ":stats":
		st := s.Stats()
		fmt.Fprintf(c.stdout, "calls: %d, iterations: %d, deepest call: %d, variables: %d\n",
			st.Calls, st.Iterations, st.MaxDepth, s.Variables())
	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(c.stdout, "usage: :load FILE")
			return false
		}
		source, _, err := c.readSource(fields[1])
		if err != nil {
			c.reportIO(err, c.cfg.Pretty)
			return false
		}
		c.replEval(ctx, s, source)
	case ":doc":
		if len(fields) < 2 {
			fmt.Fprint(c.stdout, help.QUICKREF)
			return false
		}
		_, content, err := help.MatchTopic(fields[1])
		if err != nil {
			fmt.Fprintln(c.stdout, err)
			return false
		}
		fmt.Fprint(c.stdout, content)
	default:
		fmt.Fprintln(c.stdout, "unknown command. Type :help for help.")
	}
	return false
}

// readInput reads lines until they form a complete snippet. It returns
// false at end of input. Ctrl+C discards the pending lines.
func readInput(r lineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, incomplete, _ := parser.ParseSnippet(src, "<repl>"); !incomplete {
			return src, true
		}
	}
}
