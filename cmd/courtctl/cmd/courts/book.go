package courts

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/internal/guard"
)

var (
	bookDate  string
	bookSlots []string
)

var bookCmd = &cobra.Command{
	Use:   "book COURT_ID",
	Short: "Request a booking",
	Long: `Requests a booking of one or more slots on a court. The booking stays
pending until an administrator approves it; approved bookings are paid with
'courtctl bookings pay'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAuth); err != nil {
			return err
		}
		a := cmdutil.App(cmd)

		court, err := a.Backend.GetCourt(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get court %s: %w", args[0], err)
		}
		selection := booking.Selection{Court: *court, Date: bookDate, Slots: bookSlots}
		if err := selection.Validate(time.Now()); err != nil {
			return err
		}

		principal := a.Session.CurrentPrincipal()
		created, err := a.Backend.CreateBooking(cmd.Context(), selection.Request(principal.Identifier, selection.Subtotal()))
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		pterm.Success.Printf("Booking %s requested: %s on %s (%s), %s\n",
			created.ID, court.Name, bookDate, strings.Join(bookSlots, ", "), booking.FormatAmount(selection.Subtotal()))
		return nil
	},
}

func init() {
	bookCmd.Flags().StringVar(&bookDate, "date", time.Now().Format(booking.DateLayout), "Booking date (YYYY-MM-DD)")
	bookCmd.Flags().StringArrayVar(&bookSlots, "slot", nil, "Slot to book; repeat for several")
	_ = bookCmd.MarkFlagRequired("slot")
}
