package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"top"},
	Short:   "Show the top-10 leaderboard and your rank",
	RunE:    runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
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

	for i, row := range d.Rank.Leaderboard(profile, snap.CurrentXP, time.Now()) {
		you := ""
		if row.You {
			you = "  <- you"
		}
		fmt.Printf("%2d. %-18s %6d XP%s\n", i+1, row.Name, row.XP, you)
	}

	if !profile.Named() {
		fmt.Println("\nSet a display name to see your rank: codeforge profile NAME")
		return nil
	}
	if snap.CurrentRank > 0 {
		fmt.Printf("\nYour rank: #%d\n", snap.CurrentRank)
	}
	return nil
}
