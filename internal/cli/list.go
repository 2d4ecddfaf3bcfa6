package cli

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	AccountID        string
	EnterpriseNumber string
	Status           string
	Limit            int
	Offset           int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List next best actions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ListNBAs(cmd.Context(), opts.query())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	cmd.Flags().StringVar(&opts.AccountID, "account", "", "filter by account id")
	cmd.Flags().StringVar(&opts.EnterpriseNumber, "enterprise", "", "filter by enterprise number")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (new|accepted|rejected)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")

	return cmd
}

func (o *ListOptions) query() url.Values {
	q := url.Values{}
	if v := strings.TrimSpace(o.AccountID); v != "" {
		q.Set("account_id", v)
	}
	if v := strings.TrimSpace(o.EnterpriseNumber); v != "" {
		q.Set("enterprise_number", v)
	}
	if v := strings.TrimSpace(o.Status); v != "" {
		q.Set("status", v)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}
