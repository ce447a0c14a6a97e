package cli

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/getjson/internal/app"
)

func newHistoryCmd(d *deps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent journaled outcomes, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := d.setup("history")
			if err != nil {
				return err
			}
			runner, err := d.newRunner(cmd.Context(), cfg, log, app.Options{})
			if err != nil {
				return runnerError(err)
			}
			defer runner.Close()

			outcomes, err := runner.History(limit)
			if err != nil {
				return &ExitError{Code: ExitGeneralError, Err: err}
			}
			return writeOutcomes(d.stdout, outcomes, false)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to print")
	return cmd
}
