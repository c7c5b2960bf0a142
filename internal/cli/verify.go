package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeforge-app/codeforge/internal/daemon"
	"github.com/codeforge-app/codeforge/internal/domain"
)

func init() {
	verifyCmd.Flags().BoolVar(&verifyReset, "reset", false, "Reset a failed verification")
	rootCmd.AddCommand(verifyCmd)
}

var verifyReset bool

var verifyCmd = &cobra.Command{
	Use:   "verify PLATFORM [USERNAME]",
	Short: "Submit or reset a social platform verification",
	Long: `Submit a membership verification for telegram, youtube, or hoyolab.
Verification takes a while; check progress with 'codeforge status'.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	platform := domain.Platform(args[0])

	if verifyReset {
		rec, err := d.Verify.Reset(platform)
		if err != nil {
			return err
		}
		fmt.Printf("%s verification reset (attempt %d next)\n", platform, rec.Attempts+1)
		return nil
	}

	if len(args) < 2 {
		return domain.ErrEmptyUsername
	}

	rec, err := d.Verify.Submit(platform, args[1], time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Verification submitted for %s as %q.\n", platform, rec.Username)
	fmt.Printf("Expected to resolve around %s.\n", rec.DueAt.Format("2006-01-02 15:04"))
	return nil
}
