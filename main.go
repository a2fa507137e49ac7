package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrgen/config"
	"github.com/openclaw/qrgen/notify"
	"github.com/openclaw/qrgen/qr"
	"github.com/openclaw/qrgen/store"
)

var errUsage = errors.New("usage: qrgen <content> [output_path]")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line in args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	// The leading "--" keeps cobra from reading the content as one of its
	// hidden completion commands.
	root.SetArgs(append([]string{"--"}, args...))

	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stdout, errUsage.Error())
		return 1
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}

// newRootCmd builds the generator command. The first argument is always the
// content, whatever it looks like; flags are only read after it.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		boxSize    int
		border     int
	)

	root := &cobra.Command{
		Use:                "qrgen <content> [output_path] [flags]",
		Short:              "Render text or a URL as a QR code image",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "--" {
				args = args[1:]
			}
			if len(args) == 0 || args[0] == "" {
				return errUsage
			}
			content := args[0]

			flags := cmd.Flags()
			if err := flags.Parse(args[1:]); err != nil {
				return err
			}
			if help, _ := flags.GetBool("help"); help {
				return cmd.Help()
			}
			if flags.NArg() > 1 {
				return errUsage
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if flags.Changed("box-size") {
				cfg.BoxSize = boxSize
			}
			if flags.Changed("border") {
				cfg.Border = border
			}
			if flags.NArg() == 1 {
				cfg.Output = flags.Arg(0)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runGenerate(cfg, qr.Request{
				Content:    content,
				OutputPath: cfg.Output,
				BoxSize:    cfg.BoxSize,
				Border:     cfg.Border,
			}, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.DisableDefaultCmd = true

	root.Flags().StringVarP(&configPath, "config", "c", "qrgen.yaml", "Path to config file")
	root.Flags().IntVar(&boxSize, "box-size", qr.DefaultBoxSize, "Pixels per QR module")
	root.Flags().IntVar(&border, "border", qr.DefaultBorder, "Quiet zone width in modules")

	return root
}

// runGenerate writes one QR image and prints the confirmation line. History
// and webhook delivery happen afterwards and only log on failure.
func runGenerate(cfg *config.Config, req qr.Request, stdout, stderr io.Writer) error {
	log, closeLog := cfg.Logger(stderr)
	defer closeLog()

	res, err := qr.Generate(req)
	if err != nil {
		return err
	}
	log.Debug("qr generated", "path", res.Path, "version", res.Version, "modules", res.Modules, "pixels", res.Pixels, "format", res.Format)

	fmt.Fprintf(stdout, "Saved QR to %s\n", res.Path)

	if cfg.History.Enabled {
		if err := recordHistory(cfg, req, res); err != nil {
			log.Warn("record history failed", "error", err)
		}
	}

	if cfg.WebhookURL != "" {
		ev := &notify.Event{
			Content:    req.Content,
			OutputPath: res.Path,
			Version:    res.Version,
			Pixels:     res.Pixels,
		}
		if err := notify.NewWebhookSender(cfg.WebhookURL, log).Send(ev); err != nil {
			log.Warn("webhook failed", "error", err)
		}
	}
	return nil
}

func recordHistory(cfg *config.Config, req qr.Request, res *qr.Result) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	hs, err := store.NewHistoryStore(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer hs.Close()

	return hs.Save(&store.Entry{
		Content:    req.Content,
		OutputPath: res.Path,
		Version:    res.Version,
		BoxSize:    req.BoxSize,
		Border:     req.Border,
		Pixels:     res.Pixels,
	})
}
