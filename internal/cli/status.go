package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"devport/internal/proxy"
	"devport/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := state.Load()
		if err != nil {
			return err
		}
		if d == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "devport is not running. Start it with 'devport serve'.")
			return nil
		}

		var st proxy.State
		if err := getJSON("/api/state", &st); err != nil {
			if errors.Is(err, errDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "devport is not running. Start it with 'devport serve'.")
				return nil
			}
			return err
		}

		uptime := time.Since(d.StartedAt).Round(time.Second)
		fmt.Fprintf(cmd.OutOrStdout(), "devport is running (pid %d)\n", d.PID)
		fmt.Fprintf(cmd.OutOrStdout(), "  port:    %d\n", d.Port)
		fmt.Fprintf(cmd.OutOrStdout(), "  uptime:  %s\n", uptime)
		fmt.Fprintf(cmd.OutOrStdout(), "  routes:  %d\n", len(st.Routes))
		return nil
	},
}
