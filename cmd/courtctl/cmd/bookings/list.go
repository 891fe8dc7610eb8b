package bookings

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var (
	listAll    bool
	listStatus string
	listFilter string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookings",
	Long: `Lists your bookings. Administrators can pass --all to list everyone's.

--filter takes a bexpr expression over id, email, court, court_id, date,
slots, price and status, e.g. --filter 'date >= "2026-11-01"'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := guard.RequireAuth
		if listAll {
			kind = guard.RequireAdmin
		}
		if err := cmdutil.Require(cmd, kind); err != nil {
			return err
		}
		a := cmdutil.App(cmd)

		query := sdk.BookingQuery{Status: sdk.BookingStatus(listStatus)}
		if !listAll {
			query.Email = a.Session.CurrentPrincipal().Identifier
		}
		bookings, err := a.Backend.ListBookings(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}
		bookings, err = sdk.Filter(bookings, listFilter)
		if err != nil {
			return err
		}
		printBookings(os.Stdout, bookings, listAll)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "List every user's bookings (admin)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only bookings in this status (pending, approved, rejected, confirmed, cancelled)")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression")
}
