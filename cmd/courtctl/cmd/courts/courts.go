package courts

import (
	"github.com/spf13/cobra"
)

// CourtsCmd is the parent command for court operations
var CourtsCmd = &cobra.Command{
	Use:   "courts",
	Short: "Browse and book courts",
}

func init() {
	CourtsCmd.AddCommand(listCmd)
	CourtsCmd.AddCommand(bookCmd)
	CourtsCmd.AddCommand(createCmd)
	CourtsCmd.AddCommand(deleteCmd)
}
