package admin

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/booking"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// CouponsCmd is the parent command for coupon operations
var CouponsCmd = &cobra.Command{
	Use:   "coupons",
	Short: "Manage discount coupons",
}

var couponListFilter string

var couponListCmd = &cobra.Command{
	Use:   "list",
	Short: "List coupons (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		coupons, err := cmdutil.App(cmd).Backend.ListCoupons(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list coupons: %w", err)
		}
		coupons, err = sdk.Filter(coupons, couponListFilter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tDISCOUNT\tACTIVE\tEXPIRES\tDESCRIPTION")
		for _, c := range coupons {
			expires := "-"
			if c.ExpiresAt != nil {
				expires = c.ExpiresAt.Format(booking.DateLayout)
			}
			fmt.Fprintf(w, "%s\t%s\t%d%%\t%t\t%s\t%s\n", c.ID, c.Code, c.DiscountPercent, c.Active, expires, c.Description)
		}
		w.Flush()
		return nil
	},
}

var (
	couponInput    sdk.CouponInput
	couponExpires  string
	couponInactive bool
)

var couponCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a coupon (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		input := couponInput
		input.Code = booking.NormalizeCode(input.Code)
		input.Active = !couponInactive
		if couponExpires != "" {
			expires, err := time.ParseInLocation(booking.DateLayout, couponExpires, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --expires %q: %w", couponExpires, err)
			}
			input.ExpiresAt = &expires
		}

		coupon, err := cmdutil.App(cmd).Backend.CreateCoupon(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("failed to create coupon: %w", err)
		}
		pterm.Success.Printf("Created coupon %s (%d%% off)\n", coupon.Code, coupon.DiscountPercent)
		return nil
	},
}

var couponDeleteCmd = &cobra.Command{
	Use:   "delete COUPON_ID",
	Short: "Delete a coupon (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		if err := cmdutil.App(cmd).Backend.DeleteCoupon(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete coupon %s: %w", args[0], err)
		}
		pterm.Success.Printf("Deleted coupon %s\n", args[0])
		return nil
	},
}

var couponCheckAmount int64

var couponCheckCmd = &cobra.Command{
	Use:   "check CODE",
	Short: "Check a coupon and show the discount it gives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAuth); err != nil {
			return err
		}
		now := time.Now()
		coupon, err := booking.LookupCoupon(cmd.Context(), cmdutil.App(cmd).Backend, args[0], now)
		if err != nil {
			return err
		}
		pterm.Info.Printf("%s: %d%% off. %s\n", coupon.Code, coupon.DiscountPercent, coupon.Description)
		if couponCheckAmount > 0 {
			quote, err := booking.Price(couponCheckAmount, coupon, now)
			if err != nil {
				return err
			}
			pterm.Info.Printf("%s becomes %s\n", booking.FormatAmount(quote.Subtotal), booking.FormatAmount(quote.Total))
		}
		return nil
	},
}

func init() {
	CouponsCmd.AddCommand(couponListCmd)
	CouponsCmd.AddCommand(couponCreateCmd)
	CouponsCmd.AddCommand(couponDeleteCmd)
	CouponsCmd.AddCommand(couponCheckCmd)

	couponListCmd.Flags().StringVar(&couponListFilter, "filter", "", "bexpr filter expression (e.g. active == true)")

	couponCreateCmd.Flags().StringVar(&couponInput.Code, "code", "", "Coupon code (stored upper-case)")
	couponCreateCmd.Flags().IntVar(&couponInput.DiscountPercent, "discount", 0, "Discount in percent (1-100)")
	couponCreateCmd.Flags().StringVar(&couponInput.Description, "description", "", "Shown to members when the coupon is applied")
	couponCreateCmd.Flags().StringVar(&couponExpires, "expires", "", "Expiry date (YYYY-MM-DD); the coupon stops working at the start of that day")
	couponCreateCmd.Flags().BoolVar(&couponInactive, "inactive", false, "Create the coupon disabled")
	_ = couponCreateCmd.MarkFlagRequired("code")
	_ = couponCreateCmd.MarkFlagRequired("discount")

	couponCheckCmd.Flags().Int64Var(&couponCheckAmount, "amount", 0, "Also price this amount (minor units)")
}
