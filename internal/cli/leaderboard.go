package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"aptitude-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewLeaderboardCmd prints current standings.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var (
		testID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the combined or per-test leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if !cmd.Flags().Changed("limit") {
				limit = b.service.DefaultLimit()
			}
			out := cmd.OutOrStdout()
			if testID != "" {
				lb, err := b.service.TestLeaderboard(ctx, testID, limit)
				if err != nil {
					return err
				}
				return printTestBoard(out, lb)
			}
			entries, err := b.service.OverallLeaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return printOverallBoard(out, entries)
		},
	}
	cmd.Flags().StringVar(&testID, "test", "", "test id (combined board when empty)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries")
	return cmd
}

func printTestBoard(w io.Writer, lb domain.TestLeaderboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tSCORE\tTIME(s)\tACCURACY\tSUBMITTED")
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.2f%%\t%s\n",
			e.Rank, e.UserName, e.Score, e.TimeTakenSeconds, e.AccuracyPercent, e.SubmittedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printOverallBoard(w io.Writer, entries []domain.OverallLeaderboardEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tTOTAL\tAVG TIME(s)\tTESTS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f\t%d\n", e.Rank, e.UserName, e.TotalScore, e.AvgTimeTakenSeconds, e.TestCount)
	}
	return tw.Flush()
}
