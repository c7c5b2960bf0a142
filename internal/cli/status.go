package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show profile, XP, and verification status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	profile, err := d.Ledger.Profile()
	if err != nil {
		return err
	}
	snap, err := d.Ledger.Snapshot()
	if err != nil {
		return err
	}
	unlocked, err := d.Ach.UnlockedCount()
	if err != nil {
		return err
	}

	fmt.Printf("Profile:       %s (%s)\n", profile.Name, profile.ID)
	fmt.Printf("XP:            %d (today: %d)\n", snap.CurrentXP, snap.DailyXPEarned)
	if snap.CurrentRank > 0 {
		fmt.Printf("Rank:          #%d\n", snap.CurrentRank)
	} else {
		fmt.Printf("Rank:          unranked (set a display name)\n")
	}
	fmt.Printf("Visits:        %d (streak: %d days)\n", snap.TotalVisits, snap.VisitStreak)
	fmt.Printf("Achievements:  %d / %d\n", unlocked, len(d.Ach.Definitions()))

	verifications, err := d.Verify.List()
	if err != nil {
		return err
	}
	fmt.Println("Verifications:")
	for _, rec := range verifications {
		fmt.Printf("  %-10s %s\n", rec.Platform, rec.Status)
	}
	return nil
}
