// Package cli implements the doit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calvinalkan/doit/internal/config"
	"github.com/calvinalkan/doit/internal/engine"
	"github.com/calvinalkan/doit/internal/filestore"
)

const (
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

var (
	errUnknownFlag     = errors.New("unknown flag")
	errFlagRequiresArg = errors.New("flag requires an argument")
	errFileEmpty       = errors.New("file cannot be empty")
)

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) > 0 {
		args = args[1:]
	}

	flags, err := parseGlobalFlags(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, nil)

		return 1
	}

	if flags.help || len(flags.remaining) == 0 {
		printUsage(out, nil)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		FileOverride:    flags.file,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if in == nil {
		in = strings.NewReader("")
	}

	a, err := newApp(cfg, env, in)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}
	defer a.close()

	return a.dispatch(context.Background(), out, errOut, flags.remaining)
}

// app holds what every command shares during one invocation: the resolved
// config, the logger and the engine, which is opened on first use.
type app struct {
	cfg     config.Config
	env     map[string]string
	in      io.Reader
	log     *slog.Logger
	logFile *os.File
	loc     *time.Location
	eng     *engine.Engine
}

func newApp(cfg config.Config, env map[string]string, in io.Reader) (*app, error) {
	a := &app{cfg: cfg, env: env, in: in, loc: time.Local}

	if tz := env["TZ"]; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TZ: %w", err)
		}

		a.loc = loc
	}

	if cfg.LogFileAbs == "" {
		a.log = slog.New(slog.NewTextHandler(io.Discard, nil))

		return a, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFileAbs), 0o750); err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}

	f, err := os.OpenFile(cfg.LogFileAbs, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}

	a.logFile = f
	a.log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level}))

	return a, nil
}

// engine opens the database on first use.
func (a *app) engine(o *IO) (*engine.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}

	depth := a.cfg.Depth()
	if depth == 0 {
		depth = -1
	}

	eng, err := engine.Open(a.cfg.FileAbs, engine.Options{UndoDepth: depth, Logger: a.log})
	if err != nil {
		return nil, err
	}

	a.eng = eng
	a.log.Debug("opened database", "path", eng.Path(), "health", eng.Health().String())

	warnHealth(o, eng)

	return eng, nil
}

func (a *app) close() {
	if a.eng != nil {
		if err := a.eng.Close(); err != nil {
			a.log.Warn("close database", "err", err)
		}
	}

	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// commands builds a fresh command set. FlagSets keep parsed values, so the
// shell asks for a new set per line.
func (a *app) commands() []*Command {
	return []*Command{
		AddCmd(a),
		LsCmd(a),
		SearchCmd(a),
		DoneCmd(a, true),
		DoneCmd(a, false),
		RenameCmd(a),
		EditCmd(a),
		PostponeCmd(a),
		RmCmd(a),
		ClearCmd(a),
		UndoCmd(a),
		StatusCmd(a),
		ShellCmd(a),
		PrintConfigCmd(&a.cfg),
	}
}

func (a *app) dispatch(ctx context.Context, out, errOut io.Writer, args []string) int {
	cmds := a.commands()
	name := args[0]

	if name == "-h" || name == helpFlag || name == "help" {
		printUsage(out, cmds)

		return 0
	}

	for _, cmd := range cmds {
		if cmd.Name() != name {
			continue
		}

		o := NewIO(out, errOut)
		code := cmd.Run(ctx, o, args[1:])

		return max(code, o.Finish())
	}

	fprintln(errOut, "error: unknown command:", name)
	fprintln(errOut)
	printUsage(errOut, cmds)

	return 1
}

// warnHealth flags a database whose tasks could not be loaded. A read-only
// database still lists fine; its writes fail with their own error.
func warnHealth(o *IO, eng *engine.Engine) {
	switch eng.Health() {
	case filestore.Corrupt:
		msg := "database is corrupt"
		if err := eng.LoadError(); err != nil {
			msg = err.Error()
		}

		o.Warn(msg, "fix or remove "+eng.Path()+"; doit will not overwrite it")
	case filestore.PermissionsUnknown:
		o.Warn("database cannot be read", "check the permissions of "+eng.Path())
	case filestore.Locked:
		o.Warn("database is locked by another doit process", "close it and retry")
	}
}

type globalFlags struct {
	workDir    string
	configPath string
	file       string
	help       bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	value := func(name string) (string, int, error) {
		if idx+1 >= len(args) {
			return "", consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, name)
		}

		return args[idx+1], consumedTwo, nil
	}

	var (
		target *string
		val    string
		n      int
		err    error
	)

	switch {
	case arg == "-C" || arg == "--cwd":
		target = &flags.workDir
		val, n, err = value(arg)
	case strings.HasPrefix(arg, "--cwd="):
		target, val, n = &flags.workDir, strings.TrimPrefix(arg, "--cwd="), consumedOne
	case arg == "-c" || arg == "--config":
		target = &flags.configPath
		val, n, err = value(arg)
	case strings.HasPrefix(arg, "--config="):
		target, val, n = &flags.configPath, strings.TrimPrefix(arg, "--config="), consumedOne
	case arg == "-f" || arg == "--file":
		target = &flags.file
		val, n, err = value(arg)
	case strings.HasPrefix(arg, "--file="):
		target, val, n = &flags.file, strings.TrimPrefix(arg, "--file="), consumedOne
	case arg == "-h" || arg == helpFlag:
		flags.help = true

		return len(args) - idx, nil
	case strings.HasPrefix(arg, "-") && arg != "-":
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	default:
		return consumedNone, nil
	}

	if err != nil {
		return consumedNone, err
	}

	if target == &flags.file && strings.TrimSpace(val) == "" {
		return consumedNone, errFileEmpty
	}

	*target = val

	return n, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, cmds []*Command) {
	fprintln(w, `doit - a personal task manager

Usage: doit [flags] <command> [args]

Global flags:
  -C, --cwd <dir>       Run as if started in <dir>
  -c, --config <file>   Use specified config file
  -f, --file <file>     Use specified database file
  -h, --help            Show help

Commands:`)

	if cmds == nil {
		a := &app{}
		cmds = a.commands()
	}

	for _, cmd := range cmds {
		fprintln(w, cmd.HelpLine())
	}
}
