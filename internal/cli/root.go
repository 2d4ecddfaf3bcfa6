package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	BaseURL string
	Output  string // "json" | "yaml"
	Timeout time.Duration
	Actor   string
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"json", "yaml"}

// NewRootCommand creates the root command for nbactl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nbactl",
		Short: "nbactl - talk to an nbaflow service",
		Long:  "Publish calculation events to nbaflow and inspect or act on the resulting next best actions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidOutput(opts.Output) {
				return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, ValidOutputs)
			}
			if strings.TrimSpace(opts.BaseURL) == "" {
				return fmt.Errorf("--url is required")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.BaseURL, "url", defaultBaseURL(), "nbaflow base URL (env NBAFLOW_URL)")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "json", "output format (json|yaml)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "value sent as X-User")

	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewActCommand(opts))

	return cmd
}

func defaultBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("NBAFLOW_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func isValidOutput(output string) bool {
	for _, f := range ValidOutputs {
		if f == output {
			return true
		}
	}
	return false
}

func (o *RootOptions) client() *Client {
	return NewClient(o.BaseURL, o.Timeout, o.Actor)
}
