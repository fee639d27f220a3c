package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/errhist/bundle"
)

var (
	pushPlainHTTP   bool
	pushAnonymous   bool
	pushUsername    string
	pushPassword    string
	pushTags        []string
	pushAnnotations map[string]string
)

var pushCmd = &cobra.Command{
	Use:   "push <dir> <ref>",
	Short: "Push an extraction bundle to an OCI registry",
	Long: `Push packages the extraction directory as an OCI artifact: one layer
per file plus the bundle manifest, and pushes it under the given
reference. The reference must include a tag, e.g.
registry.example.com/fleet/errhist:host42-2025-06-03.

Credentials come from --username/--password, the registry section of the
config file, or ~/.docker/config.json, in that order.`,
	Args: exactArgs(2),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().BoolVar(&pushPlainHTTP, "plain-http", false, "use plain HTTP (no TLS)")
	pushCmd.Flags().BoolVar(&pushAnonymous, "anonymous", false, "skip authentication")
	pushCmd.Flags().StringVar(&pushUsername, "username", "", "registry username")
	pushCmd.Flags().StringVar(&pushPassword, "password", "", "registry password")
	pushCmd.Flags().StringArrayVar(&pushTags, "tag", nil, "additional tag to apply (repeatable)")
	pushCmd.Flags().StringToStringVar(&pushAnnotations, "annotation", nil, "manifest annotation key=value (repeatable)")
}

func runPush(cmd *cobra.Command, args []string) error {
	dir, ref := args[0], args[1]

	cfg, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}

	c := bundle.New(clientOptions(cmd, cfg, ref)...)

	var pushOpts []bundle.PushOption
	if len(pushTags) > 0 {
		pushOpts = append(pushOpts, bundle.WithTags(pushTags...))
	}
	if len(pushAnnotations) > 0 {
		pushOpts = append(pushOpts, bundle.WithAnnotations(pushAnnotations))
	}

	desc, err := c.Push(cmd.Context(), ref, dir, pushOpts...)
	if err != nil {
		return err
	}

	fmt.Printf("pushed %s\n", ref)
	fmt.Printf("digest: %s\n", desc.Digest)
	return nil
}

// clientOptions assembles the registry client options from flags and the
// config file. Flags win; the docker config store is the fallback when no
// explicit credentials are given.
func clientOptions(cmd *cobra.Command, cfg *fileConfig, ref string) []bundle.Option {
	opts := []bundle.Option{bundle.WithLogger(logger)}

	plainHTTP := pushPlainHTTP
	if !cmd.Flags().Changed("plain-http") && cfg.isSet("registry", "plain_http") {
		plainHTTP = cfg.Registry.PlainHTTP
	}
	if plainHTTP {
		opts = append(opts, bundle.WithPlainHTTP(true))
	}

	if cfg.isSet("registry", "user_agent") {
		opts = append(opts, bundle.WithUserAgent(cfg.Registry.UserAgent))
	}

	anonymous := pushAnonymous
	if !cmd.Flags().Changed("anonymous") && cfg.isSet("registry", "anonymous") {
		anonymous = cfg.Registry.Anonymous
	}

	// The credential store keys on the registry host; it normalizes the
	// full reference down to host[:port] itself.
	switch {
	case anonymous:
		opts = append(opts, bundle.WithAnonymous())
	case pushUsername != "" || pushPassword != "":
		opts = append(opts, bundle.WithStaticCredentials(ref, pushUsername, pushPassword))
	case cfg.isSet("registry", "username"):
		opts = append(opts, bundle.WithStaticCredentials(ref, cfg.Registry.Username, cfg.Registry.Password))
	default:
		opts = append(opts, bundle.WithDockerConfig())
	}

	return opts
}
