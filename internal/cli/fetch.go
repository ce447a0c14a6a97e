package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/getjson/internal/app"
	"github.com/samvad-hq/getjson/internal/domain"
	"github.com/samvad-hq/getjson/pkg/targets"
)

func newFetchCmd(d *deps) *cobra.Command {
	var (
		targetsFile string
		decode      bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [URL...]",
		Short: "Fetch each URL once and print one JSON line per outcome",
		Long: `Fetch issues exactly one GET per URL (and per enabled entry of --targets).
Nothing is retried or cached: repeating a URL repeats the request.

Exits 0 when every fetch resolved with status 200 and 3 when any rejected.

Examples:
  getjson fetch https://api.example.com/status.json
  getjson fetch --decode https://api.example.com/a.json https://api.example.com/b.json
  getjson fetch --targets configs/targets.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := targets.FromURLs(args)
			if targetsFile != "" {
				reg, err := targets.LoadRegistry(targetsFile)
				if err != nil {
					return &ExitError{Code: ExitConfigError, Err: err}
				}
				ts = append(ts, reg.Enabled()...)
			}
			if len(ts) == 0 {
				return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("no URLs given (pass URLs or --targets)")}
			}

			cfg, log, err := d.setup("fetch")
			if err != nil {
				return err
			}
			runner, err := d.newRunner(cmd.Context(), cfg, log, app.Options{KeepPayload: decode})
			if err != nil {
				return runnerError(err)
			}
			defer runner.Close()

			outcomes, runErr := runner.Run(cmd.Context(), ts)
			if err := writeOutcomes(d.stdout, outcomes, decode); err != nil {
				return err
			}
			if runErr != nil {
				return &ExitError{Code: ExitGeneralError, Err: runErr}
			}
			for _, o := range outcomes {
				if !o.Resolved() {
					return &ExitError{Code: ExitRejected}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetsFile, "targets", "", "YAML/JSON file of named targets to fetch")
	cmd.Flags().BoolVar(&decode, "decode", false, "Include the decoded JSON payload of resolved fetches")
	return cmd
}

// writeOutcomes prints one JSON document per line.
func writeOutcomes(w io.Writer, outcomes []domain.Outcome, withPayload bool) error {
	enc := json.NewEncoder(w)
	for _, o := range outcomes {
		if !withPayload {
			o.Payload = nil
		}
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
	}
	return nil
}
