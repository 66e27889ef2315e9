package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/network"
	"github.com/bnema/wayseat/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay scripts for SSH clients",
	Long: `Serve accepts SSH sessions from keys listed in the authorized keys file.
Each session pipes an event script on stdin and gets the wire trace back
on stdout, against a seat of its own:

  ssh -p 2323 host < drag.yaml        # text trace
  ssh -p 2323 host raw < drag.yaml    # protobuf records, see the trace command`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	opts, err := runtimeOptions(cfg)
	if err != nil {
		return err
	}

	addr := cfg.Serve.Address
	if flagAddr, _ := cmd.Flags().GetString("address"); flagAddr != "" {
		addr = flagAddr
	}

	server := network.NewSSHServer(network.ServerConfig{
		Address:            addr,
		HostKeyPath:        cfg.Serve.HostKeyPath(),
		AuthorizedKeysPath: cfg.Serve.AuthorizedKeysPath(),
		MaxSessions:        cfg.Serve.MaxSessions,
	}, opts)
	server.OnSessionStart = func(addr, fingerprint string) {
		logger.Infof("Session from %s key=%s", addr, fingerprint)
	}
	server.OnSessionEnd = func(addr string, res network.Result, err error) {
		if err != nil {
			logger.Warnf("Session from %s failed after %d of %d steps: %v", addr, res.Applied, res.Steps, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.FormatHeader("wayseat serve"))
	fmt.Fprintln(out, ui.FormatField("listening", server.Addr().String()))
	fmt.Fprintln(out, ui.FormatField("keys", cfg.Serve.AuthorizedKeysPath()))

	<-ctx.Done()
	server.Stop()
	fmt.Fprintln(out, ui.FormatResult(true, "server stopped"))
	return nil
}
