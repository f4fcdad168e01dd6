package cmd

import (
	"fmt"
	"mypage-client/cmd/mypage-cli/globals"
	"mypage-client/internal/notify"
	"mypage-client/lib/serviceutil"

	"github.com/spf13/cobra"
)

var notifyTo string

func init() {
	notifyCmd.Flags().StringVar(&notifyTo, "to", "", "recipient, defaults to notify_to in the config")
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "E-mail the reports due this month as csv.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		to := notifyTo
		if to == "" {
			to = ctx.Config.NotifyTo
		}

		records, err := ctx.Client.FetchScores(cmd.Context())
		if err != nil {
			fatalFetch(err)
		}

		err = notify.NewNotifier(ctx.Config.Smtp).Send(cmd.Context(), to, records, ctx.Time.Now())
		if err != nil {
			serviceutil.Fatal("failed to send email", err)
		}
		fmt.Printf("sent to %s\n", to)
	},
}
