// Package cli is the shared entry point of the commands: it loads the
// configuration, builds the logger and factory, runs the program and maps
// its error to an exit code.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leofalp/aitasks/core/cost"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/core/parse"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/factory"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/observability/slogobs"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ErrUsage marks command-line mistakes. It maps to ExitUsage.
var ErrUsage = errors.New("usage error")

// Command is one program.
type Command struct {
	Name  string
	Usage string
	Run   func(ctx context.Context, env *Env, args []string) error
}

// Env is what a running command may use. Programs print results to Stdout
// and everything else (prompts, progress, warnings) to Stderr.
type Env struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Config  config.Config
	Factory *factory.Factory
	Logger  *slog.Logger
	Console *input.Console
}

// NewEnv assembles an environment from explicit parts.
func NewEnv(cfg config.Config, stdin io.Reader, stdout, stderr io.Writer, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Env{
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  cfg,
		Factory: factory.New(cfg, logger),
		Logger:  logger,
		Console: input.NewConsole(stdin, stderr),
	}
}

// Printf writes to Stdout.
func (e *Env) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Stdout, format, args...)
}

// Notef writes a progress or informational line to Stderr.
func (e *Env) Notef(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Stderr, format+"\n", args...)
}

// Warn reports a non-fatal recovery warning. Nil warnings are ignored.
func (e *Env) Warn(w *parse.RecoveryWarning) {
	if w == nil {
		return
	}
	e.Logger.Warn("structured output recovered", "strategy", string(w.Strategy), "cause", w.Cause)
	e.Notef("warning: %v", w)
}

// FlagSet returns a flag set that writes usage to Stderr.
func (e *Env) FlagSet(cmd Command) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(e.Stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(e.Stderr, cmd.Usage)
		fs.PrintDefaults()
	}
	return fs
}

// Parse parses args into fs. Help requests pass through as flag.ErrHelp;
// other failures are wrapped with ErrUsage.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// ParseInterspersed is Parse for commands whose flags may follow
// positional arguments ("a.jpg -e text b.jpg"). It returns every positional
// argument in order; "--" ends flag parsing.
func ParseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := Parse(fs, args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// Main runs cmd with the process arguments and streams and exits.
func Main(cmd Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, cmd, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes cmd and returns the exit code. Configuration is read from
// the environment; logs go to stderr through slogobs.
func Run(ctx context.Context, cmd Command, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := slogobs.New(slogobs.WithOutput(stderr)).With("command", cmd.Name)

	cfg, err := config.FromEnv()
	if err != nil {
		return report(stderr, logger, err)
	}
	return Execute(ctx, cmd, NewEnv(cfg, stdin, stdout, stderr, logger), args)
}

// Execute runs cmd in an existing environment and returns the exit code.
func Execute(ctx context.Context, cmd Command, env *Env, args []string) int {
	ctx, tracker := cost.NewContext(ctx)
	err := cmd.Run(ctx, env, args)
	logUsage(env.Logger, tracker.Summary())
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}
	return report(env.Stderr, env.Logger, err)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage), ai.IsValidationError(err), errors.Is(err, config.ErrMissingAPIKey):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// logUsage reports the token usage of the run at debug level.
func logUsage(logger *slog.Logger, s cost.Summary) {
	if s.Requests == 0 {
		return
	}
	attrs := []any{
		"requests", s.Requests,
		"prompt_tokens", s.Usage.PromptTokens,
		"completion_tokens", s.Usage.CompletionTokens,
		"estimated_cost_usd", fmt.Sprintf("%.6f", s.TotalCost),
	}
	if len(s.Unpriced) > 0 {
		attrs = append(attrs, "unpriced_models", strings.Join(s.Unpriced, ","))
	}
	logger.Debug("token usage", attrs...)
}

func report(stderr io.Writer, logger *slog.Logger, err error) int {
	code := ExitCode(err)
	if code != ExitOK {
		logger.Debug("command failed", "error", err, "exit_code", code)
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}
