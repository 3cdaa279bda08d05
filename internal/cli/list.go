package cli

import (
	"errors"
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"devport/internal/proxy"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List registered routes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var routes []proxy.Route
		if err := getJSON("/api/routes", &routes); err != nil {
			if errors.Is(err, errDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "devport is not running. Start it with 'devport serve'.")
				return nil
			}
			return err
		}
		if len(routes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No routes registered.")
			return nil
		}

		nameW := len("NAME")
		urlW := len("URL")
		for _, rt := range routes {
			if len(rt.Name) > nameW {
				nameW = len(rt.Name)
			}
			if len(rt.URL) > urlW {
				urlW = len(rt.URL)
			}
		}

		color := term.IsTerminal(int(os.Stdout.Fd()))
		fmt.Fprintf(cmd.OutOrStdout(), "%-*s  %-*s  %-8s  %-15s  %s\n", nameW, "NAME", urlW, "URL", "STATUS", "TARGET", "LAST ACCESS")
		for _, rt := range routes {
			status := fmt.Sprintf("%-8s", rt.Status)
			if color {
				status = statusStyle(rt.Status).Render(status)
			}
			target := fmt.Sprintf("%s:%d", rt.TargetHost, rt.TargetPort)
			fmt.Fprintf(cmd.OutOrStdout(), "%-*s  %-*s  %s  %-15s  %s\n", nameW, rt.Name, urlW, rt.URL, status, target, formatAge(rt.LastAccessed))
		}
		return nil
	},
}

func statusStyle(s proxy.Status) lipgloss.Style {
	switch s {
	case proxy.StatusRunning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	case proxy.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	case proxy.StatusStarting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	}
}
