package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile [NAME]",
	Short: "Show the profile, or set the display name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if len(args) == 0 {
		profile, err := d.Ledger.Profile()
		if err != nil {
			return err
		}
		fmt.Printf("ID:   %s\n", profile.ID)
		fmt.Printf("Name: %s\n", profile.Name)
		return nil
	}

	res, err := d.Activity.SetDisplayName(args[0], time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Display name set to %q.\n", args[0])
	if res.AwardedXP > 0 {
		fmt.Printf("+%d XP welcome bonus! (total: %d)\n", res.AwardedXP, res.TotalXP)
	}
	return nil
}
