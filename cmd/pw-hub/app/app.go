package app

import (
	"context"
	"fmt"

	"github.com/pitwall-io/pitwall/cmd/pw-hub/app/options"
	"github.com/pitwall-io/pitwall/pkg/app"
)

const (
	commandName = "pw-hub"
	commandDesc = `The Pitwall hub is the cloud side of the command and presence
control plane. It accepts operator commands over HTTP, dispatches them to
vehicles over MQTT with one pending command per lane, tracks vehicle
presence from heartbeats, and hands out presigned upload URLs for clips.`
)

func NewApp() *app.App {
	opts := options.NewHubOptions()
	return app.NewApp(
		commandName,
		"Launch the Pitwall control-plane hub",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.HubOptions) app.RunFunc {
	return func(ctx context.Context) error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewHubServer()
		if err != nil {
			return fmt.Errorf("failed to create hub server: %w", err)
		}

		return server.Run(ctx)
	}
}
