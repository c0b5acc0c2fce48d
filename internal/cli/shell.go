package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// lineReader is the part of *liner.State the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// scanReader reads lines from a non-terminal input such as a pipe.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	if err := r.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (r *scanReader) Close() error { return nil }

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Read commands line by line and run them against one open database.

The database stays locked for the whole session, and "undo" reverts
changes made earlier in the session. Quote arguments that contain spaces.
Type "exit" to leave.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execShell(ctx, o, a)
		},
	}
}

func execShell(ctx context.Context, o *IO, a *app) error {
	if _, err := a.engine(o); err != nil {
		return err
	}

	var (
		in      lineReader
		history string
	)

	if f, ok := a.in.(*os.File); ok && f == os.Stdin {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		l.SetCompleter(func(line string) []string {
			var out []string

			for _, cmd := range a.commands() {
				if strings.HasPrefix(cmd.Name(), line) {
					out = append(out, cmd.Name())
				}
			}

			return out
		})

		if home := a.env["HOME"]; home != "" {
			history = filepath.Join(home, ".doit_history")

			if hf, err := os.Open(history); err == nil {
				_, _ = l.ReadHistory(hf)
				_ = hf.Close()
			}

			defer func() {
				if hf, err := os.Create(history); err == nil {
					_, _ = l.WriteHistory(hf)
					_ = hf.Close()
				}
			}()
		}

		in = l

		o.Println(`doit shell - type "help" for commands, "exit" to leave`)
	} else {
		in = &scanReader{sc: bufio.NewScanner(a.in)}
	}

	defer func() { _ = in.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := in.Prompt("doit> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if l, ok := in.(*liner.State); ok {
			l.AppendHistory(line)
		}

		args, err := splitLine(line)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			o.ErrPrintln("error: already in a shell")

			continue
		}

		a.log.Debug("shell", "line", line)
		a.dispatch(ctx, o.out, o.errOut, args)
	}
}

// splitLine splits a shell line into words. Single or double quotes group
// words containing spaces.
func splitLine(line string) ([]string, error) {
	var (
		words  []string
		cur    strings.Builder
		quote  rune
		inWord bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}

	if inWord {
		words = append(words, cur.String())
	}

	return words, nil
}
