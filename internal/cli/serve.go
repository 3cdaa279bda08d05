package cli

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"devport/internal/config"
	"devport/internal/control"
	"devport/internal/manifest"
	"devport/internal/proxy"
	"devport/internal/state"
	"devport/internal/xdg"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the devport proxy daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		manifestPath, _ := cmd.Flags().GetString("manifest")
		noDashboard, _ := cmd.Flags().GetBool("no-dashboard")

		configDir, err := xdg.ConfigDir()
		if err != nil {
			return err
		}
		cfg, err := config.LoadOrCreate(configDir)
		if err != nil {
			return err
		}
		if port == 0 {
			port = cfg.PreferredPort
		}
		if manifestPath == "" {
			manifestPath = cfg.Manifest
		}

		engine := proxy.NewEngine()
		engine.SetControlHandler(control.NewHandler(engine, control.Options{
			Dashboard:         cfg.DashboardEnabled() && !noDashboard,
			DefaultTargetHost: cfg.DefaultTargetHost,
		}))
		unsub := engine.Subscribe(logEvent)
		defer unsub()

		boundPort, err := engine.Start(port)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "devport listening on http://127.0.0.1:%d\n", boundPort)

		if err := state.Write(boundPort); err != nil {
			_ = engine.Stop()
			return err
		}
		defer func() { _ = state.Clear() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		if manifestPath != "" {
			watcher := manifest.NewWatcher(engine, manifestPath)
			g.Go(func() error { return watcher.Run(ctx) })
		}
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
		if err := g.Wait(); err != nil {
			_ = engine.Stop()
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down devport...")
		return engine.Stop()
	},
}

func logEvent(ev proxy.Event) {
	switch {
	case ev.Route != nil:
		log.Printf("%s %s -> %s:%d", ev.Type, ev.Route.Name, ev.Route.TargetHost, ev.Route.TargetPort)
	case ev.Error != "":
		log.Printf("%s: %s", ev.Type, ev.Error)
	default:
		log.Printf("%s", ev.Type)
	}
}

func init() {
	serveCmd.Flags().Int("port", 0, "Preferred listening port (falls back to the default list)")
	serveCmd.Flags().String("manifest", "", "Path to a routes.yaml to watch")
	serveCmd.Flags().Bool("no-dashboard", false, "Disable the HTML dashboard at /")
}
