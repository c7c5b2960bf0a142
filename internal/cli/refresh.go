package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
	"github.com/codeforge-app/codeforge/internal/domain"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the latest codes from the remote database",
	RunE:  runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Codes.Refresh(context.Background(), time.Now())
	if errors.Is(err, domain.ErrSourceOffline) {
		fmt.Printf("Source offline, serving %s catalog\n", res.Source)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Fetched via %s\n", res.Source)
	if len(res.NewCodes) == 0 {
		fmt.Println("No new codes.")
		return nil
	}
	fmt.Printf("%d new codes:\n", len(res.NewCodes))
	for _, nc := range res.NewCodes {
		fmt.Printf("  %-10s %s\n", nc.Game, nc.Entry.Code)
	}
	return nil
}
