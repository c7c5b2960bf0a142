package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
	"github.com/codeforge-app/codeforge/internal/domain"
)

func init() {
	rootCmd.AddCommand(copyCmd)
}

var copyCmd = &cobra.Command{
	Use:   "copy GAME CODE",
	Short: "Record a code copy and print its redemption URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runCopy,
}

func runCopy(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	game := domain.Game(args[0])
	code := args[1]

	res, err := d.Activity.RecordCopy(game, code, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(game.RedeemURL(code))
	if res.Counted {
		fmt.Printf("+%d XP (total: %d)\n", res.AwardedXP, res.TotalXP)
	}
	for _, def := range res.Unlocked {
		fmt.Printf("Achievement unlocked: %s\n", def.Title)
	}
	return nil
}
