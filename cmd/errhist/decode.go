package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/errhist"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <dir|file>",
	Short: "Print a saved error-history directory",
	Long: `Decode parses a saved raw directory response and prints the device
identity and the buffer entries it advertises. The argument is either an
extraction directory or the raw directory file itself.`,
	Args: exactArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		path = filepath.Join(path, errhist.DirectoryFileName)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return printDirectory(os.Stdout, errhist.DecodeDirectory(raw))
}

func printDirectory(w io.Writer, dir errhist.Directory) error {
	extractable := 0
	for _, ent := range dir.Entries {
		if ent.Extractable() {
			extractable++
		}
	}

	fmt.Fprintf(w, "Vendor:  %s\n", dir.Header.Vendor())
	fmt.Fprintf(w, "Version: %d\n", dir.Header.Version)
	fmt.Fprintf(w, "Entries: %d (%d extractable)\n\n", len(dir.Entries), extractable)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "BUFFER\tBYTES\tEXTRACTABLE")
	for _, ent := range dir.Entries {
		fmt.Fprintf(tw, "0x%02x\t%d\t%t\n", ent.BufferID, ent.MaxAvailable, ent.Extractable())
	}
	return tw.Flush()
}
