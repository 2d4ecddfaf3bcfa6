package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ActOptions holds flags for the act command.
type ActOptions struct {
	*RootOptions
	Status   string
	Comment  string
	ActionAt string
}

// NewActCommand creates the act command.
func NewActCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "act <nba-id>",
		Short: "Accept or reject a next best action",
		Long: `Register a user action on a next best action.

Example:
  nbactl act 1790123456789 --status accepted --comment "called the client"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.body()
			if err != nil {
				return err
			}
			resp, err := opts.client().RegisterAction(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "accepted or rejected")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "optional comment")
	cmd.Flags().StringVar(&opts.ActionAt, "action-at", "", "ISO-8601 action time (server time when empty)")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func (o *ActOptions) body() (map[string]any, error) {
	status := strings.ToLower(strings.TrimSpace(o.Status))
	if status != "accepted" && status != "rejected" {
		return nil, fmt.Errorf("invalid --status %q: must be accepted or rejected", o.Status)
	}
	body := map[string]any{"status": status}
	if o.Comment != "" {
		body["comment"] = o.Comment
	}
	setIfPresent(body, "action_at", o.ActionAt)
	return body, nil
}
