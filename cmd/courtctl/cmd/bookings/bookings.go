package bookings

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// BookingsCmd is the parent command for booking operations
var BookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List, review and pay for bookings",
}

func init() {
	BookingsCmd.AddCommand(listCmd)
	BookingsCmd.AddCommand(approveCmd)
	BookingsCmd.AddCommand(rejectCmd)
	BookingsCmd.AddCommand(cancelCmd)
	BookingsCmd.AddCommand(payCmd)
}

func printBookings(out io.Writer, bookings []sdk.Booking, withEmail bool) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if withEmail {
		fmt.Fprintln(w, "ID\tEMAIL\tCOURT\tDATE\tSLOTS\tPRICE\tSTATUS")
	} else {
		fmt.Fprintln(w, "ID\tCOURT\tDATE\tSLOTS\tPRICE\tSTATUS")
	}
	for _, b := range bookings {
		slots := strings.Join(b.Slots, ", ")
		if withEmail {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Email, b.CourtName, b.Date, slots, booking.FormatAmount(b.Price), b.Status)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.CourtName, b.Date, slots, booking.FormatAmount(b.Price), b.Status)
		}
	}
	w.Flush()
}
