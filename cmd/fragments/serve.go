package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/devserver"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local news API backed by fixtures or RSS feeds",
	Long: `Serve the news API on a local address.

Cards come from server.fixtures (a JSON file) and server.feeds (RSS or Atom
URLs). With neither configured a built-in sample set is served.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := debuglog.GetLevel()
		if level == debuglog.LevelOff {
			level = debuglog.LevelInfo
		}
		debuglog.SetOutput(level, cmd.ErrOrStderr())
		defer debuglog.Close()

		addr := cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		corpus, err := devserver.BuildCorpus(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving %d cards on http://%s/api\n", corpus.Len(), addr)
		return devserver.New(corpus).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
}
