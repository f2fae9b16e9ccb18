package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/script"
	"github.com/nsevent/nsevent/internal/watch"
)

func newRunCommand(a *app) *cobra.Command {
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Run a Lua script against a fresh emitter",
		Long: `Run a Lua script with the global "emitter" bound to a new event emitter.

The script can register handlers with emitter.on and emitter.once, remove
them with emitter.off and dispatch events with emitter.emit. An error raised
by a handler stops the emit and surfaces in the script.

With --watch the script is run again, against a new emitter, every time the
file is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watchFile {
				return a.runScript(cmd, args[0])
			}
			return a.watchScript(cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "rerun the script when the file changes")
	cmd.Flags().Duration("debounce", 0, "quiet period before a rerun (default from config)")
	return cmd
}

func (a *app) runScript(cmd *cobra.Command, path string) error {
	em := a.newEmitter()

	state := script.NewState(
		script.WithTimeout(a.cfg.Script.Timeout),
		script.WithOpenLibs(a.cfg.Script.OpenLibs),
		script.WithOutput(cmd.OutOrStdout()),
	)
	defer state.Close()

	if err := state.Install(script.NewEmitterModule(em, "script")); err != nil {
		return err
	}

	start := time.Now()
	if err := state.DoFile(cmd.Context(), path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}

	stats := em.Stats()
	a.logger.Info("script finished",
		"path", path,
		"duration", time.Since(start),
		"emits", stats.Emits,
		"handlers_executed", stats.HandlersExecuted,
		"subscriptions", stats.Subscriptions)
	return nil
}

func (a *app) watchScript(cmd *cobra.Command, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	files := event.New(event.WithLogger(a.logger.WithComponent("watch")))
	saved := make(chan watch.Change, 1)
	notify := func(ctx context.Context, e event.Event) error {
		select {
		case saved <- e.Data.(watch.Change):
		default:
		}
		return nil
	}
	for _, op := range []watch.Op{watch.OpWrite, watch.OpCreate} {
		if _, err := files.OnFunc(op.Topic(), notify); err != nil {
			return err
		}
	}

	w, err := watch.New(files,
		watch.WithDebounce(a.cfg.Watch.Debounce),
		watch.WithLogger(a.logger.WithComponent("watch")))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		return err
	}
	a.logger.Info("watching", "paths", w.Watched(), "debounce", a.cfg.Watch.Debounce)

	a.rerun(cmd, path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-saved:
			a.logger.Info("script changed", "path", c.Path, "op", c.Op.String())
			a.rerun(cmd, path)
		}
	}
}

// rerun runs the script and logs failures instead of returning them so that
// watching continues.
func (a *app) rerun(cmd *cobra.Command, path string) {
	if err := a.runScript(cmd, path); err != nil {
		a.logger.Error("script failed", "path", path, "error", err)
	}
}
