package cmd

import (
	"fmt"
	"mypage-client/cmd/mypage-cli/globals"
	"mypage-client/internal/report"
	"os"

	"github.com/spf13/cobra"
)

const subjectSimilarity = 0.85

var (
	scoresMonth   bool
	scoresCsv     bool
	scoresSubject string
)

func init() {
	scoresCmd.Flags().BoolVar(&scoresMonth, "month", false, "only show reports due on the 15th of this month")
	scoresCmd.Flags().BoolVar(&scoresCsv, "csv", false, "print as csv instead of a table")
	scoresCmd.Flags().StringVar(&scoresSubject, "subject", "", "only show subjects similar to this name")
	rootCmd.AddCommand(scoresCmd)
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the progress of every report.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		records, err := ctx.Client.FetchScores(cmd.Context())
		if err != nil {
			fatalFetch(err)
		}

		if scoresMonth {
			records = report.ThisMonth(records, ctx.Time.Now())
		}
		records = report.FilterSubject(records, scoresSubject, subjectSimilarity)

		if scoresCsv {
			fmt.Println(report.ToCsv(records))
			return
		}
		report.RenderTable(os.Stdout, records)
	},
}
