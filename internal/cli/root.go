// Package cli provides the getjson command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/getjson/internal/app"
	"github.com/samvad-hq/getjson/internal/config"
	"github.com/samvad-hq/getjson/internal/logger"
)

// Exit codes returned by Execute.
const (
	ExitSuccess      = 0 // every fetch resolved
	ExitGeneralError = 1 // I/O, storage or publish failure
	ExitConfigError  = 2 // invalid config, targets or flags
	ExitRejected     = 3 // at least one fetch rejected
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// RunnerFactory builds the runner a command works with.
type RunnerFactory func(ctx context.Context, cfg *config.Config, log logger.Logger, opts app.Options) (*app.Runner, error)

// deps are the collaborators shared by every subcommand.
type deps struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (*config.Config, error)
	newRunner  RunnerFactory
	logLevel   string
}

func defaultDeps() *deps {
	return &deps{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
		newRunner:  app.NewRunner,
	}
}

// setup loads config and the logger, applying the --log-level override.
func (d *deps) setup(command string) (*config.Config, logger.Logger, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, nil, &ExitError{Code: ExitConfigError, Err: fmt.Errorf("load config: %w", err)}
	}
	if d.logLevel != "" {
		cfg.LogLevel = d.logLevel
	}
	// stdout carries command output, so logs go to stderr.
	log, err := logger.Init(cfg, d.stderr)
	if err != nil {
		return nil, nil, &ExitError{Code: ExitConfigError, Err: fmt.Errorf("init logger: %w", err)}
	}

	logger.InfoObj("getjson starting", "startup", map[string]any{
		"command": command,
		"config":  cfg,
	})
	return cfg, log, nil
}

// runnerError maps a NewRunner failure to its exit code.
func runnerError(err error) error {
	if errors.Is(err, app.ErrConfig) {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	return &ExitError{Code: ExitGeneralError, Err: err}
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(d *deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "getjson",
		Short: "Fetch JSON documents over HTTP and journal how each request settled",
		Long: `getjson issues one HTTP GET per URL and treats exactly status 200 as success.

Every other status, and every request that cannot complete, is a rejection.
Outcomes are printed as JSON lines, kept in a local journal and optionally
forwarded to HTTP, SQS, SNS or Pub/Sub sinks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.stdout)
	root.SetErr(d.stderr)
	root.PersistentFlags().StringVar(&d.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newFetchCmd(d), newWatchCmd(d), newHistoryCmd(d))
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd(), os.Args[1:], os.Stderr)
}

func execute(cmd *cobra.Command, args []string, stderr io.Writer) int {
	defer logger.Close()

	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	code := ExitGeneralError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			return code
		}
		err = exitErr.Err
	}
	logger.ErrorObj("command failed", "command_error", map[string]any{
		"exit_code": code,
		"error":     err.Error(),
	})
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return code
}
