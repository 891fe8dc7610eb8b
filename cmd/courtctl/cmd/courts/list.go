package courts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List courts",
	Long: `Lists every court with its price and slots. No sign-in is needed.

--filter takes a bexpr expression over id, name, type, price and slots, e.g.
  courtctl courts list --filter 'type == "indoor" and price < 2000'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		courts, err := cmdutil.App(cmd).Backend.ListCourts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list courts: %w", err)
		}
		courts, err = sdk.Filter(courts, listFilter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tPRICE/SLOT\tSLOTS")
		for _, c := range courts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, booking.FormatAmount(c.PricePerSlot), strings.Join(c.Slots, ", "))
		}
		w.Flush()
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression (e.g. type == \"indoor\")")
}
