package app

import (
	"context"
	"fmt"

	"github.com/pitwall-io/pitwall/cmd/pw-edge-agent/app/options"
	"github.com/pitwall-io/pitwall/pkg/app"
)

const (
	commandName = "pw-edge-agent"
	commandDesc = `The Pitwall edge agent runs on the vehicle. It executes
streaming commands against the local hardware, persists the desired state
before every action so a reboot resumes toward it, reports presence to the
hub, and serves the on-device status API.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	return app.NewApp(
		commandName,
		"Launch the Pitwall on-vehicle agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func(ctx context.Context) error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		return agent.Run(ctx)
	}
}
