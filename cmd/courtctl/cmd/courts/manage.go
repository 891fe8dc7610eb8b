package courts

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

var createInput sdk.CourtInput

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a court (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		court, err := cmdutil.App(cmd).Backend.CreateCourt(cmd.Context(), createInput)
		if err != nil {
			return fmt.Errorf("failed to create court: %w", err)
		}
		pterm.Success.Printf("Created court %s (%s)\n", court.Name, court.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete COURT_ID",
	Short: "Remove a court (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		if err := cmdutil.App(cmd).Backend.DeleteCourt(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete court %s: %w", args[0], err)
		}
		pterm.Success.Printf("Deleted court %s\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createInput.Name, "name", "", "Court name")
	createCmd.Flags().StringVar(&createInput.Type, "type", "", "Court type (e.g. indoor, outdoor)")
	createCmd.Flags().StringVar(&createInput.ImageURL, "image-url", "", "Image shown on the court card")
	createCmd.Flags().Int64Var(&createInput.PricePerSlot, "price", 0, "Price per slot in minor units (e.g. 1250 for 12.50)")
	createCmd.Flags().StringSliceVar(&createInput.Slots, "slots", nil, "Comma-separated slot labels (e.g. 09:00,10:00)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("price")
	_ = createCmd.MarkFlagRequired("slots")
}
