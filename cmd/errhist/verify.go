package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/errhist/bundle"
)

var verifyConcurrency int

var verifyCmd = &cobra.Command{
	Use:   "verify <dir>",
	Short: "Verify the integrity of an extraction bundle",
	Long: `Verify re-digests every artifact the bundle manifest names and compares
the result against the recorded digests and sizes. Compressed artifacts
are decompressed on the fly, so verification always covers the raw
payload.`,
	Args: exactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVarP(&verifyConcurrency, "concurrency", "j", 0, "artifacts verified in parallel (0 = GOMAXPROCS)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := args[0]

	var opts []bundle.VerifyOption
	if verifyConcurrency > 0 {
		opts = append(opts, bundle.WithVerifyConcurrency(verifyConcurrency))
	}

	m, err := bundle.Verify(cmd.Context(), dir, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d artifacts verified\n", dir, len(m.Artifacts))
	return nil
}
