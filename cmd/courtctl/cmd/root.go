package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/admin"
	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/auth"
	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/bookings"
	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/courts"
	"github.com/terraconstructs/courtbook/cmd/courtctl/internal/cliconfig"
	"github.com/terraconstructs/courtbook/internal/app"
	"github.com/terraconstructs/courtbook/internal/config"
)

var (
	configPath  string
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "courtctl",
	Short: "Court booking client",
	Long: `courtctl books courts, pays for approved bookings and, for administrators,
manages courts, coupons, announcements and member roles.

Sign in once with 'courtctl auth login'; the session is kept between runs.
'courtctl serve' starts a local web dashboard backed by the same session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(configPath); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Debug {
			pterm.EnableDebugMessages()
		} else {
			log.SetOutput(io.Discard)
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		a.Start(cmd.Context())
		application = a

		cmd.SetContext(cliconfig.InjectConfig(cmd.Context(), &cliconfig.GlobalConfig{
			Settings: cfg,
			App:      a,
		}))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if application != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if closeErr := application.Close(ctx); closeErr != nil {
			pterm.Debug.Printf("shutdown: %v\n", closeErr)
		}
		cancel()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./config.yaml or ~/.courtbook/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Booking API base URL (env: COURTBOOK_API_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: COURTBOOK_DEBUG)")
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(courts.CourtsCmd)
	rootCmd.AddCommand(bookings.BookingsCmd)
	rootCmd.AddCommand(bookings.PaymentsCmd)
	rootCmd.AddCommand(admin.CouponsCmd)
	rootCmd.AddCommand(admin.AnnouncementsCmd)
	rootCmd.AddCommand(admin.UsersCmd)
	rootCmd.AddCommand(serveCmd)
}
