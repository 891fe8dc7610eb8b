package admin

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// AnnouncementsCmd is the parent command for club announcements
var AnnouncementsCmd = &cobra.Command{
	Use:   "announcements",
	Short: "Read and publish club announcements",
}

var announcementListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show announcements",
	RunE: func(cmd *cobra.Command, args []string) error {
		announcements, err := cmdutil.App(cmd).Backend.ListAnnouncements(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list announcements: %w", err)
		}
		if len(announcements) == 0 {
			pterm.Info.Println("No announcements")
			return nil
		}
		for _, a := range announcements {
			pterm.DefaultSection.Println(a.Title)
			pterm.Printf("%s, %s\n\n%s\n", a.Author, a.CreatedAt.Local().Format("2 Jan 2006"), a.Body)
		}
		return nil
	},
}

var (
	postTitle    string
	postBody     string
	postBodyFile string
)

var announcementPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish an announcement (admin)",
	Long:  `Publishes an announcement. The body is markdown, given inline or with --body-file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		body := postBody
		if postBodyFile != "" {
			data, err := os.ReadFile(postBodyFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", postBodyFile, err)
			}
			body = string(data)
		}
		if body == "" {
			return fmt.Errorf("one of --body or --body-file is required")
		}

		a := cmdutil.App(cmd)
		principal := a.Session.CurrentPrincipal()
		author := principal.DisplayName
		if author == "" {
			author = principal.Identifier
		}
		created, err := a.Backend.CreateAnnouncement(cmd.Context(), sdk.AnnouncementInput{Title: postTitle, Body: body, Author: author})
		if err != nil {
			return fmt.Errorf("failed to publish announcement: %w", err)
		}
		pterm.Success.Printf("Published %q (%s)\n", created.Title, created.ID)
		return nil
	},
}

var announcementDeleteCmd = &cobra.Command{
	Use:   "delete ANNOUNCEMENT_ID",
	Short: "Delete an announcement (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		if err := cmdutil.App(cmd).Backend.DeleteAnnouncement(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete announcement %s: %w", args[0], err)
		}
		pterm.Success.Printf("Deleted announcement %s\n", args[0])
		return nil
	},
}

func init() {
	AnnouncementsCmd.AddCommand(announcementListCmd)
	AnnouncementsCmd.AddCommand(announcementPostCmd)
	AnnouncementsCmd.AddCommand(announcementDeleteCmd)

	announcementPostCmd.Flags().StringVar(&postTitle, "title", "", "Announcement title")
	announcementPostCmd.Flags().StringVar(&postBody, "body", "", "Markdown body")
	announcementPostCmd.Flags().StringVar(&postBodyFile, "body-file", "", "Read the markdown body from this file")
	_ = announcementPostCmd.MarkFlagRequired("title")
}
