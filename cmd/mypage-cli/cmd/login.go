package cmd

import (
	"fmt"
	"mypage-client/cmd/mypage-cli/globals"
	"mypage-client/lib/scrapers/mypage"
	"mypage-client/lib/serviceutil"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into the portal and save the session.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := globals.Get(cmd.Context()).Client

		outcome, err := client.Login(cmd.Context())
		if err != nil {
			serviceutil.Fatal(outcome.String(), err)
		}

		fmt.Println(outcome.String())
		switch outcome {
		case mypage.LOGIN_SUCCESS:
			return
		case mypage.LOGIN_PASSWORD_RESET_REQUIRED:
			fmt.Println(client.PasswordResetUrl())
		}
		os.Exit(1)
	},
}
