// Command qrgenctl holds the qrgen tooling that does not generate files:
// the HTTP server, history listing, decoding and terminal preview.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrgen/api"
	"github.com/openclaw/qrgen/config"
	"github.com/openclaw/qrgen/notify"
	"github.com/openclaw/qrgen/qr"
	"github.com/openclaw/qrgen/store"
)

var version = "v0.1.0"

var errHistoryDisabled = errors.New("history is disabled; set history.enabled in the config file or QRGEN_HISTORY=1")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "qrgenctl",
		Short:         "Serve, inspect and preview QR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "qrgen.yaml", "Path to config file")

	// --- serve command -------------------------------------------------------
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve QR codes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, stderr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default \":<port>\" from config)")
	root.AddCommand(serveCmd)

	// --- history command -----------------------------------------------------
	var (
		limit  int
		search string
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated QR codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(configPath, search, limit, stdout)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	historyCmd.Flags().StringVarP(&search, "search", "s", "", "Only show entries whose content contains this text")
	root.AddCommand(historyCmd)

	// --- decode command ------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "decode <image>",
		Short: "Print the text encoded in a QR image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := qr.DecodeFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, text)
			return nil
		},
	})

	// --- preview command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "preview <content>",
		Short: "Print a QR code to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return qr.RenderTerminal(stdout, args[0], cfg.Border)
		},
	})

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "qrgen %s\n", version)
		},
	})

	return root
}

// runHistory prints recent history entries as a table.
func runHistory(configPath, search string, limit int, stdout io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.History.Enabled {
		return errHistoryDisabled
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	hs, err := store.NewHistoryStore(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hs.Close()

	var entries []store.Entry
	if search != "" {
		entries, err = hs.Search(search, limit)
	} else {
		entries, err = hs.Recent(limit, 0)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tVERSION\tPIXELS\tPATH\tCONTENT")
	for _, e := range entries {
		created := time.Unix(e.CreatedAt, 0).Format(time.DateTime)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", created, e.Version, e.Pixels, e.OutputPath, e.Content)
	}
	return tw.Flush()
}

// runServe runs the HTTP API until SIGINT or SIGTERM.
func runServe(configPath, addr string, stderr io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog := cfg.Logger(stderr)
	defer closeLog()
	slog.SetDefault(log)

	var hs *store.HistoryStore
	if cfg.History.Enabled {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("ensure data dir: %w", err)
		}
		hs, err = store.NewHistoryStore(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer hs.Close()
	}

	var webhook *notify.WebhookSender
	if cfg.WebhookURL != "" {
		webhook = notify.NewWebhookSender(cfg.WebhookURL, log)
		log.Info("webhook enabled")
	}

	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(&api.Server{
			Store:   hs,
			Webhook: webhook,
			Log:     log,
			Version: version,
			BoxSize: cfg.BoxSize,
			Border:  cfg.Border,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}
