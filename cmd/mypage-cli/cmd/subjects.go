package cmd

import (
	"fmt"
	"mypage-client/cmd/mypage-cli/globals"
	"mypage-client/internal/report"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List the subjects that have reports.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		records, err := ctx.Client.FetchScores(cmd.Context())
		if err != nil {
			fatalFetch(err)
		}
		for _, subject := range report.Subjects(records) {
			fmt.Println(subject)
		}
	},
}
