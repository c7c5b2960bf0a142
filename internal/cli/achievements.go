package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
	"github.com/codeforge-app/codeforge/internal/domain"
)

func init() {
	achievementsCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "List achievements and their unlock status",
	RunE:    runAchievements,
}

var claimCmd = &cobra.Command{
	Use:   "claim ID",
	Short: "Claim a claimable achievement",
	Args:  cobra.ExactArgs(1),
	RunE:  runClaim,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	unlocked, err := d.Ach.ListUnlocked()
	if err != nil {
		return err
	}
	unlockedMap := make(map[string]domain.UnlockedAchievement, len(unlocked))
	for _, u := range unlocked {
		unlockedMap[u.ID] = u
	}

	clicks, err := d.Ledger.AdClicks()
	if err != nil {
		return err
	}

	for _, def := range d.Ach.Definitions() {
		mark := "[ ]"
		note := ""
		if u, ok := unlockedMap[def.ID]; ok {
			mark = "[x]"
			note = u.UnlockedAt.Format("2006-01-02")
		} else if def.Kind == domain.KindClaim {
			note = fmt.Sprintf("%d/%d clicks", clicks, def.ClaimThreshold)
			if clicks >= def.ClaimThreshold {
				note += " (claimable!)"
			}
		}
		fmt.Printf("%s %-20s %-22s %s\n", mark, def.ID, def.Title, note)
	}
	fmt.Printf("\n%d / %d unlocked\n", len(unlocked), len(d.Ach.Definitions()))
	return nil
}

func runClaim(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Activity.ClaimAchievement(args[0], time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Claimed! +%d XP (total: %d)\n", res.AwardedXP, res.TotalXP)
	return nil
}
