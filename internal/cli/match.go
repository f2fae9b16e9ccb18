package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/event/topic"
)

func newMatchCommand(a *app) *cobra.Command {
	var exact bool

	cmd := &cobra.Command{
		Use:   "match <registered> <emitted>",
		Short: "Show whether an emit reaches a registered event type",
		Long: `Register a handler under <registered>, emit <emitted> and report whether
the handler ran.

Examples:
  nsemit match user.login user        # match
  nsemit match username user          # no match
  nsemit match user.login user --exact`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fired, err := a.match(cmd.Context(), topic.Topic(args[0]), topic.Topic(args[1]), exact)
			if err != nil {
				return err
			}

			mode := "namespace"
			if exact {
				mode = "exact"
			}
			verdict := "no match"
			if fired {
				verdict = "match"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: emit %q -> %q (%s)\n", verdict, args[1], args[0], mode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&exact, "exact", false, "require identical event types")
	return cmd
}

func (a *app) match(ctx context.Context, registered, emitted topic.Topic, exact bool) (bool, error) {
	em := a.newEmitter()

	fired := false
	_, err := em.OnFunc(registered, func(ctx context.Context, e event.Event) error {
		fired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("register %q: %w", registered, err)
	}

	if err := em.Emit(ctx, emitted, nil, event.ExactIf(exact), event.WithSource("cli")); err != nil {
		return false, fmt.Errorf("emit %q: %w", emitted, err)
	}
	return fired, nil
}
