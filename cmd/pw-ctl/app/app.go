// Package app builds the pw-ctl command tree: a race-control CLI for
// listing vehicles, checking presence, and driving streaming commands
// through the hub's operator API.
package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func NewRootCommand() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "pw-ctl",
		Short:         "Race-control CLI for the Pitwall hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&server, "server", "s", "http://127.0.0.1:8480", "Hub base URL.")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout.")

	cl := func() *client { return newClient(server, timeout) }
	root.AddCommand(
		newVehiclesCommand(cl),
		newPresenceCommand(cl),
		newStatusCommand(cl),
		newSubmitCommand(cl),
	)
	return root
}

func newVehiclesCommand(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List registered vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vehicles, err := cl().vehicles(cmd.Context())
			if err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("VEHICLE", "EVENT", "ONLINE", "VERSION", "LAST SEEN")
			for _, v := range vehicles {
				table.AddRow(v.VehicleID, v.EventID, v.Online, v.Version, age(v.LastSeen))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newPresenceCommand(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "presence",
		Short: "List presence records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := cl().presence(cmd.Context())
			if err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("VEHICLE", "LAST SEEN", "IP", "VERSION")
			for _, r := range records {
				table.AddRow(r.VehicleID, age(r.LastSeenAt), r.ReportedIP, r.Version)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newStatusCommand(cl func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status EVENT VEHICLE KIND",
		Short: "Show one command lane's state",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := cl().commandState(cmd.Context(), args[0], args[1], v1.Kind(args[2]))
			if err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("REQUEST", state.RequestID)
			table.AddRow("KIND", string(state.Kind))
			table.AddRow("STATUS", string(state.Status))
			table.AddRow("DESIRED", state.Desired)
			table.AddRow("ACTIVE", state.Active)
			if state.LastError != "" {
				table.AddRow("ERROR", state.LastError)
			}
			table.AddRow("ISSUED", state.IssuedAt.Format(time.RFC3339))
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newSubmitCommand(cl func() *client) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "submit EVENT VEHICLE KIND",
		Short: "Submit a streaming command",
		Long: `Submit a streaming command to one vehicle. Resubmitting the same
desired value while the previous command is still pending returns the
pending request instead of issuing a new one.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &v1.SubmitRequest{
				Kind:    v1.Kind(args[2]),
				Payload: json.RawMessage(payload),
			}
			resp, err := cl().submit(cmd.Context(), args[0], args[1], req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.RequestID, resp.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&payload, "payload", "p", "{}", "Command payload as JSON, e.g. '{\"camera\":\"chase\"}'.")
	return cmd
}

func age(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Truncate(time.Second).String() + " ago"
}
