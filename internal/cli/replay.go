package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/plan"
)

func newReplayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <plan.toml|plan.yaml>",
		Short: "Replay a plan of on, once, off and emit steps",
		Long: `Replay the steps of a plan file against a fresh emitter.

With tracing on (the default) one JSON record is written to stdout for the
plan, for every handler call, for every step and for the final summary.
Emit steps can state the handlers they expect to call; the command fails if
any expectation is not met.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.replay(cmd, args[0])
		},
	}

	cmd.Flags().Bool("trace", true, "write JSON trace records to stdout")
	return cmd
}

func (a *app) replay(cmd *cobra.Command, path string) error {
	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	opts := []plan.RunnerOption{
		plan.WithLogger(a.logger.WithComponent("plan")),
		plan.WithEmitterOptions(
			event.WithLogger(a.logger.WithComponent("emitter")),
			event.WithHandlerTimeout(a.cfg.Emitter.HandlerTimeout),
		),
	}
	if a.cfg.Replay.Trace {
		opts = append(opts, plan.WithTrace(cmd.OutOrStdout()))
	}

	res, err := plan.NewRunner(opts...).Run(cmd.Context(), p)
	if err != nil {
		return err
	}

	if !a.cfg.Replay.Trace {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps, %d calls, %d failed emits\n",
			p.Name, res.Steps, res.Calls, res.Failures)
	}

	if !res.OK() {
		for _, m := range res.Mismatches {
			fmt.Fprintln(cmd.ErrOrStderr(), m.String())
		}
		return fmt.Errorf("%s: %d expectations not met", p.Name, len(res.Mismatches))
	}
	return nil
}
