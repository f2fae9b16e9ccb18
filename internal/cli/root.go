// Package cli implements the nsemit command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsevent/nsevent/internal/config"
	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/logging"
)

// Info describes the build.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// app is the state shared by the commands of one invocation.
type app struct {
	info       Info
	configFile string
	cfg        *config.Config
	logger     *logging.Logger
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"log.level":      "log-level",
	"replay.trace":   "trace",
	"watch.debounce": "debounce",
}

// NewRootCommand builds the nsemit command tree.
func NewRootCommand(info Info) *cobra.Command {
	root, _ := newRoot(info)
	return root
}

func newRoot(info Info) (*cobra.Command, *app) {
	a := &app{info: info}

	root := &cobra.Command{
		Use:   "nsemit",
		Short: "Namespaced event emitter toolkit",
		Long: `nsemit drives a namespaced event emitter from the command line.

Handlers are registered under dot-delimited event types. Emitting a type
reaches handlers registered under that type and every type nested below it,
so emitting "user" reaches "user.login" but not "username".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default is $HOME/.config/nsemit/nsemit.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newMatchCommand(a),
		newRunCommand(a),
		newReplayCommand(a),
		newVersionCommand(a),
	)
	return root, a
}

// Execute runs the root command.
func Execute(info Info) error {
	return execute(newRoot(info))
}

// execute runs root and closes the logger whether or not the command failed.
func execute(root *cobra.Command, a *app) error {
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	v := config.NewViper(a.configFile)
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger.With("command", cmd.Name())
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, name := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	err := a.logger.Close()
	a.logger = nil
	return err
}

// newEmitter returns an emitter configured from the loaded settings.
func (a *app) newEmitter(opts ...event.Option) *event.Emitter {
	base := []event.Option{
		event.WithLogger(a.logger.WithComponent("emitter")),
		event.WithHandlerTimeout(a.cfg.Emitter.HandlerTimeout),
	}
	return event.New(append(base, opts...)...)
}
