package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"devport/internal/proxy"
)

var addCmd = &cobra.Command{
	Use:   "add NAME PORT",
	Short: "Register a route to a local dev server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("PORT must be a number, got %q", args[1])
		}
		targetHost, _ := cmd.Flags().GetString("host")
		taskID, _ := cmd.Flags().GetString("task")

		payload := map[string]any{
			"name":       name,
			"targetPort": port,
		}
		if targetHost != "" {
			payload["targetHost"] = targetHost
		}
		if taskID != "" {
			payload["taskId"] = taskID
		}

		var rt proxy.Route
		if err := postJSON("/api/routes", payload, &rt); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s:%d\n", rt.URL, rt.TargetHost, rt.TargetPort)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove"},
	Short:   "Remove a registered route",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		existed, err := doDelete("/api/routes/" + args[0])
		if err != nil {
			return err
		}
		if !existed {
			fmt.Fprintf(cmd.OutOrStdout(), "No route named '%s'\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed route '%s'\n", args[0])
		return nil
	},
}

func init() {
	addCmd.Flags().String("host", "", "Backend host (defaults to the configured target host)")
	addCmd.Flags().String("task", "", "Task ID to associate with the route")
}
