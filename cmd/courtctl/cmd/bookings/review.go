package bookings

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var approveCmd = &cobra.Command{
	Use:   "approve BOOKING_ID",
	Short: "Approve a pending booking (admin)",
	Long: `Approves a pending booking. Approval makes the booker a member, which lets
them pay for the booking.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return review(cmd, args[0], "Approved", cmdutil.App(cmd).Backend.ApproveBooking)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject BOOKING_ID",
	Short: "Reject a pending booking (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return review(cmd, args[0], "Rejected", cmdutil.App(cmd).Backend.RejectBooking)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel BOOKING_ID",
	Short: "Cancel one of your bookings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAuth); err != nil {
			return err
		}
		if err := cmdutil.App(cmd).Backend.CancelBooking(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to cancel booking %s: %w", args[0], err)
		}
		pterm.Success.Printf("Cancelled booking %s\n", args[0])
		return nil
	},
}

func review(cmd *cobra.Command, id, verb string, apply func(context.Context, string) (*sdk.Booking, error)) error {
	if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
		return err
	}
	b, err := apply(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", id, err)
	}
	pterm.Success.Printf("%s booking %s for %s\n", verb, b.ID, b.Email)
	return nil
}
