package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"molten/internal/version"
)

type versionOptions struct {
	format string
	full   bool
	color  bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show molten build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return err
			}
			colorValue, err := cmd.Root().PersistentFlags().GetString("color")
			if err != nil {
				return err
			}
			useColor, err := colorMode(colorValue)
			if err != nil {
				return err
			}
			opts := versionOptions{format: strings.ToLower(format), full: full, color: useColor}
			switch opts.format {
			case "pretty":
				return renderVersionPretty(cmd.OutOrStdout(), opts)
			case "json":
				return renderVersionJSON(cmd.OutOrStdout(), opts)
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().Bool("full", false, "include commit and build date")
	return cmd
}

func renderVersionPretty(out io.Writer, opts versionOptions) error {
	if !opts.full {
		_, err := fmt.Fprintf(out, "molten %s\n", version.Version)
		return err
	}
	_, err := fmt.Fprintln(out, version.String(opts.color))
	return err
}

func renderVersionJSON(out io.Writer, opts versionOptions) error {
	payload := versionPayload{Tool: "molten", Version: version.Version}
	if opts.full {
		payload.GitCommit = valueOrUnknown(version.GitCommit)
		payload.BuildDate = valueOrUnknown(version.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
