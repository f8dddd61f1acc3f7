// Package app builds the cobra command skeleton shared by every Pitwall
// binary: flag registration from option groups, optional config-file
// loading through viper, logger initialization, and signal handling.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pitwall-io/pitwall/pkg/log"
)

// RunFunc is the application's entry point, invoked after options are
// complete and validated.
type RunFunc func(ctx context.Context) error

// Options aggregates a binary's option groups.
type Options interface {
	// AddFlags registers every option group's flags.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills derived fields after flags and config are loaded.
	Complete() error

	// Validate checks the final option values.
	Validate() error

	// LogOptions exposes the logging group so the app can initialize
	// the global logger before Run.
	LogOptions() *log.Options
}

// App is a runnable Pitwall application.
type App struct {
	name        string
	short       string
	description string
	opts        Options
	run         RunFunc

	cmd *cobra.Command
}

// Option configures an App during construction.
type Option func(*App)

// WithDescription sets the long help text.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the binary's option aggregate.
func WithOptions(opts Options) Option {
	return func(a *App) { a.opts = opts }
}

// WithRunFunc sets the application entry point.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.run = run }
}

// NewApp creates an App with the given name and short description.
func NewApp(name, short string, opts ...Option) *App {
	a := &App{
		name:  name,
		short: short,
	}
	for _, o := range opts {
		o(a)
	}
	a.cmd = a.buildCommand()
	return a
}

// Command exposes the underlying cobra command, for binaries that mount
// extra subcommands.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.short,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts != nil {
				if configFile != "" {
					if err := loadConfig(configFile, cmd.Flags(), a.opts); err != nil {
						return fmt.Errorf("failed to load config %s: %w", configFile, err)
					}
				}
				if err := a.opts.Complete(); err != nil {
					return err
				}
				if err := a.opts.Validate(); err != nil {
					return err
				}
				log.Init(a.opts.LogOptions())
			}

			if a.run == nil {
				return nil
			}

			ctx := SetupSignalContext()
			return a.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a config file (YAML/TOML/JSON).")
	if a.opts != nil {
		a.opts.AddFlags(cmd.Flags())
	}

	return cmd
}

// loadConfig reads the config file and overlays it onto the options,
// leaving explicitly-set command-line flags untouched.
func loadConfig(path string, fs *pflag.FlagSet, opts Options) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	return v.Unmarshal(opts)
}

// SetupSignalContext returns a context cancelled on SIGINT/SIGTERM. A
// second signal kills the process immediately.
func SetupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
