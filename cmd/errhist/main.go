package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meigma/errhist"
	"github.com/meigma/errhist/sgio"
)

// Exit statuses follow the sg3_utils convention: 1 for usage errors, the
// sense key for device-reported failures, 15 for file and OS errors, 99
// for everything else.
const (
	exitOK    = 0
	exitUsage = 1
	exitFile  = 15
	exitOther = 99
)

var errUsage = errors.New("invalid usage")

var (
	verbose    bool
	configPath string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "errhist",
	Short: "Extract SCSI error-history buffers from UFS devices",
	Long: `errhist reads the vendor error-history area of UFS devices through
SCSI READ BUFFER commands and saves each advertised buffer to disk,
together with a manifest describing the run.

Saved extractions can be decoded, verified offline, and pushed to an
OCI registry for collection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(pushCmd)
}

// exactArgs wraps cobra's count check so argument mistakes exit with the
// usage status.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	if ce, ok := errhist.AsCommandError(err); ok {
		if ce.Kind == errhist.OutcomeSenseError {
			return int(ce.Key)
		}
		return exitFile
	}
	if errors.Is(err, sgio.ErrNotSG) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return exitFile
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitFile
	}
	return exitOther
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "errhist: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}
