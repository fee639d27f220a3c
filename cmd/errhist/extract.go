package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/errhist"
	"github.com/meigma/errhist/bundle"
	"github.com/meigma/errhist/sgio"
)

var (
	extractOut     string
	extractZstd    bool
	extractRB16    bool
	extractTimeout time.Duration
)

var extractCmd = &cobra.Command{
	Use:   "extract <device>",
	Short: "Extract all error-history buffers from a device",
	Long: `Extract reads the error-history directory of the given sg device,
saves the raw directory response, then retrieves every buffer the
directory advertises into the output directory. A bundle manifest
recording payload digests is written alongside the artifacts.

Entries the device advertises but cannot deliver are kept as truncated
artifacts and marked in the manifest; they do not abort the run.`,
	Args: exactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", ".", "output directory")
	extractCmd.Flags().BoolVar(&extractZstd, "zstd", false, "compress buffer artifacts with zstd")
	extractCmd.Flags().BoolVar(&extractRB16, "rb16", false, "use the 16-byte READ BUFFER variant")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", errhist.DefaultCommandTimeout, "per-command timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	device := args[0]

	cfg, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}

	out := extractOut
	if !cmd.Flags().Changed("out") && cfg.isSet("out") {
		out = cfg.Out
	}
	zstd := extractZstd
	if !cmd.Flags().Changed("zstd") && cfg.isSet("zstd") {
		zstd = cfg.Zstd
	}
	rb16 := extractRB16
	if !cmd.Flags().Changed("rb16") && cfg.isSet("rb16") {
		rb16 = cfg.RB16
	}
	timeout := extractTimeout
	if !cmd.Flags().Changed("timeout") && cfg.isSet("timeout_seconds") {
		timeout = cfg.timeout()
	}

	dev, err := sgio.Open(device)
	if err != nil {
		return err
	}

	runErr := extractToDir(cmd, dev, device, out, zstd, rb16, timeout)
	if cerr := dev.Close(); runErr == nil && cerr != nil {
		runErr = cerr
	}
	return runErr
}

func extractToDir(cmd *cobra.Command, dev *sgio.Device, device, out string, zstd, rb16 bool, timeout time.Duration) error {
	var sinkOpts []errhist.DirSinkOption
	if zstd {
		sinkOpts = append(sinkOpts, errhist.WithCompression(errhist.CompressionZstd))
	}
	sink, err := errhist.NewDirSink(out, sinkOpts...)
	if err != nil {
		return err
	}

	opts := []errhist.Option{
		errhist.WithLogger(logger),
		errhist.WithCommandTimeout(timeout),
		errhist.WithProgress(logProgress),
	}
	if rb16 {
		opts = append(opts, errhist.WithLongCommands())
	}

	rep, err := errhist.Extract(cmd.Context(), dev, sink, opts...)
	if err != nil {
		return err
	}

	m := bundle.Build(rep, sink.Artifacts(), device, time.Now())
	if err := m.Write(out); err != nil {
		return err
	}

	fmt.Printf("%s: %d extracted, %d skipped, %d failed\n",
		device, rep.Extracted(), rep.Skipped(), rep.Failed())
	fmt.Printf("bundle written to %s (%d artifacts)\n", out, len(m.Artifacts))
	return nil
}

func logProgress(ev errhist.ProgressEvent) {
	switch ev.Stage {
	case errhist.StageDirectory:
		logger.Debug("reading error history directory")
	case errhist.StageExtracting:
		logger.Debug("extracting buffer",
			"buffer_id", fmt.Sprintf("0x%02x", ev.BufferID),
			"bytes_done", ev.BytesDone,
			"bytes_total", ev.BytesTotal)
	case errhist.StageEntryDone:
		logger.Debug("entry done",
			"buffer_id", fmt.Sprintf("0x%02x", ev.BufferID),
			"entries_done", ev.EntriesDone,
			"entries_total", ev.EntriesTotal)
	}
}
