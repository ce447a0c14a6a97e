package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/getjson/internal/app"
	"github.com/samvad-hq/getjson/pkg/targets"
)

func newWatchCmd(d *deps) *cobra.Command {
	var targetsFile string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the configured targets every poll_interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := d.setup("watch")
			if err != nil {
				return err
			}
			if targetsFile == "" {
				targetsFile = cfg.TargetsFile
			}
			reg, err := targets.LoadRegistry(targetsFile)
			if err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, err := d.newRunner(ctx, cfg, log, app.Options{})
			if err != nil {
				return runnerError(err)
			}
			defer runner.Close()

			return runner.Watch(ctx, reg.Enabled())
		},
	}

	cmd.Flags().StringVar(&targetsFile, "targets", "", "Targets file (defaults to targets_file from config)")
	return cmd
}
