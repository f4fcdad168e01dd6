package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mypage-client/cmd/mypage-cli/globals"
	"mypage-client/internal/chrono"
	"mypage-client/lib/restyutil"
	"mypage-client/lib/scrapers/mypage"
	"mypage-client/lib/serviceutil"
	"mypage-client/lib/sessionstore"
	"mypage-client/lib/telemetry"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	dumpHttp   string
)

var closeStore func() error
var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "mypage-cli",
	Short: "mypage-cli logs into the student portal and reads report progress.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "mypage-cli")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			serviceutil.Fatal("failed to setup telemetry", err)
		}

		config, err := globals.ReadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		store, closeFn, err := sessionstore.Open(cmd.Context(), config.Session)
		if err != nil {
			serviceutil.Fatal("failed to open session store", err)
		}
		closeStore = closeFn

		opts := mypage.ClientOptions{
			Username:         config.Username,
			Password:         config.Password,
			Store:            store,
			Timeout:          time.Duration(config.TimeoutSeconds) * time.Second,
			CloudflareBypass: config.CloudflareBypass,
		}
		if dumpHttp != "" {
			output, err := restyutil.NewFilesystemOutput(dumpHttp)
			if err != nil {
				serviceutil.Fatal("failed to create http dump directory", err)
			}
			opts.HttpOutput = output
		}

		client, err := mypage.NewClient(cmd.Context(), opts, telemetry.SlogAPI{})
		if errors.Is(err, mypage.ErrUnknownSite) {
			serviceutil.Fatal("the username must contain N or S", err)
		}
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}
		slog.Debug("resolved site", "site", client.Site.String())

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Config: config,
			Client: client,
			Time:   chrono.NewStandardTime(),
		}))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeStore != nil {
			err := closeStore()
			if err != nil {
				slog.Warn("failed to close session store", "err", err)
			}
		}
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mypage.json5", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "write every request and response to files in this directory")
}

func Execute() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fatalFetch explains why the scores could not be fetched and exits.
func fatalFetch(err error) {
	var outcomeErr *mypage.OutcomeError
	switch {
	case errors.As(err, &outcomeErr):
		fmt.Fprintln(os.Stderr, outcomeErr.Outcome.String())
	case errors.Is(err, mypage.ErrNotLoggedIn):
		fmt.Fprintln(os.Stderr, "not logged in, run 'mypage-cli login' first")
	}
	serviceutil.Fatal("failed to fetch scores", err)
}
