package bookings

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var (
	payCoupon      string
	payTransaction string
	payDryRun      bool
)

var payCmd = &cobra.Command{
	Use:   "pay BOOKING_ID",
	Short: "Record the payment for an approved booking (member)",
	Long: `Quotes an approved booking, applying --coupon when given, and records the
payment completed in the hosted payment form under --transaction.

Use --dry-run to see the quote without paying.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireMember); err != nil {
			return err
		}
		a := cmdutil.App(cmd)
		principal := a.Session.CurrentPrincipal()

		approved, err := a.Backend.ListBookings(cmd.Context(), sdk.BookingQuery{Email: principal.Identifier, Status: sdk.BookingApproved})
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}
		idx := slices.IndexFunc(approved, func(b sdk.Booking) bool { return b.ID == args[0] })
		if idx < 0 {
			return fmt.Errorf("no approved booking %s for %s", args[0], principal.Identifier)
		}
		target := approved[idx]

		now := time.Now()
		var coupon *sdk.Coupon
		if payCoupon != "" {
			coupon, err = booking.LookupCoupon(cmd.Context(), a.Backend, payCoupon, now)
			if err != nil {
				return err
			}
		}
		quote, err := booking.Price(target.Price, coupon, now)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SUBTOTAL\tDISCOUNT\tTOTAL")
		fmt.Fprintf(w, "%s\t%s\t%s\n", booking.FormatAmount(quote.Subtotal), booking.FormatAmount(quote.Discount), booking.FormatAmount(quote.Total))
		w.Flush()
		if payDryRun {
			return nil
		}

		payment, err := booking.Pay(cmd.Context(), a.Backend, booking.ConfirmedTransaction(payTransaction), target, quote)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Paid %s for booking %s (transaction %s)\n", booking.FormatAmount(payment.Amount), target.ID, payment.TransactionID)
		return nil
	},
}

// PaymentsCmd lists the signed-in member's payments.
var PaymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Show your payment history (member)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireMember); err != nil {
			return err
		}
		a := cmdutil.App(cmd)
		payments, err := a.Backend.ListPayments(cmd.Context(), a.Session.CurrentPrincipal().Identifier)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BOOKING\tAMOUNT\tCOUPON\tTRANSACTION\tPAID AT")
		for _, p := range payments {
			paidAt := "-"
			if !p.PaidAt.IsZero() {
				paidAt = p.PaidAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.BookingID, booking.FormatAmount(p.Amount), p.CouponCode, p.TransactionID, paidAt)
		}
		w.Flush()
		return nil
	},
}

func init() {
	payCmd.Flags().StringVar(&payCoupon, "coupon", "", "Coupon code to apply")
	payCmd.Flags().StringVar(&payTransaction, "transaction", "", "Transaction ID from the payment form")
	payCmd.Flags().BoolVar(&payDryRun, "dry-run", false, "Only show the quote")
}
