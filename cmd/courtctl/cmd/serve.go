package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/dashboard"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	Long: `Serves the booking dashboard on a local address. Pages use the courtctl
session: sign in from the dashboard or with 'courtctl auth login'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := cmdutil.App(cmd)
		addr := a.Config.Dashboard.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		router, err := dashboard.NewRouter(dashboard.Options{
			Sessions:       a.Session,
			Roles:          a.Roles,
			Backend:        a.Backend,
			SettleWait:     a.Config.Dashboard.SettleWait,
			CSRFKey:        []byte(a.Config.Dashboard.CSRFKey),
			AllowedOrigins: a.Config.Dashboard.AllowedOrigins,
			Metrics:        a.GuardMetrics,
		})
		if err != nil {
			return fmt.Errorf("failed to build dashboard: %w", err)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// Federated sign-in holds the request open until the device code is approved.
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting dashboard on %s", addr)
			serverErrors <- srv.ListenAndServe()
		}()
		pterm.Info.Printf("Dashboard listening on http://%s\n", addr)

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			log.Printf("Dashboard stopped")
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (env: COURTBOOK_DASHBOARD_ADDR)")
}
