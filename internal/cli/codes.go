package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
	"github.com/codeforge-app/codeforge/internal/domain"
)

func init() {
	rootCmd.AddCommand(codesCmd)
}

var codesCmd = &cobra.Command{
	Use:   "codes [GAME]",
	Short: "List redemption codes (genshin, hsr, zzz)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCodes,
}

func runCodes(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	games := domain.Games()
	if len(args) == 1 {
		g := domain.Game(args[0])
		if !domain.ValidGame(g) {
			return domain.ErrUnknownGame
		}
		games = []domain.Game{g}
	}

	ctx := context.Background()
	now := time.Now()
	cat, err := d.Codes.Catalog(ctx, now)
	if err != nil {
		return err
	}

	for _, game := range games {
		entries := cat.ForGame(game)
		fmt.Printf("%s (%d codes)\n", game.DisplayName(), len(entries))
		for _, e := range entries {
			badge := "  "
			if domain.RecentlyAdded(e, now) {
				badge = "* "
			}
			desc := e.Rewards
			if desc == "" {
				desc = e.Description
			}
			fmt.Printf("  %s%-20s %-10s %s\n", badge, e.Code, domain.CodeType(e), desc)
		}
		fmt.Println()
	}
	return nil
}
