package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/nbaflow/pkg/telemetry/correlation"
	"github.com/spf13/cobra"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	EventID          string
	OccurredAt       string
	Source           string
	DefinitionID     string
	AccountID        string
	EnterpriseNumber string
	ContactID        string
	Context          string
	Create           bool
	Deactivate       []string
	CorrelationID    string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a calculation event",
		Long: `Publish a calculation event to the nbaflow intake endpoint.

Examples:
  nbactl publish --source calc.v1 --definition upsell-premium --account ACC-1 --context '{"score":0.8}'
  nbactl publish --source calc.v1 --definition upsell-premium --account ACC-1 --create=false --deactivate 1790,1791`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishEvent(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.EventID, "event-id", "", "event UUID (generated when empty)")
	cmd.Flags().StringVar(&opts.OccurredAt, "occurred-at", "", "ISO-8601 occurrence time (now when empty)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "producing calculation source")
	cmd.Flags().StringVar(&opts.DefinitionID, "definition", "", "NBA definition id")
	cmd.Flags().StringVar(&opts.AccountID, "account", "", "account id")
	cmd.Flags().StringVar(&opts.EnterpriseNumber, "enterprise", "", "enterprise number")
	cmd.Flags().StringVar(&opts.ContactID, "contact", "", "contact id")
	cmd.Flags().StringVar(&opts.Context, "context", "{}", "calculation context as JSON object")
	cmd.Flags().BoolVar(&opts.Create, "create", true, "create a new recommendation")
	cmd.Flags().StringSliceVar(&opts.Deactivate, "deactivate", nil, "NBA ids to deactivate")
	cmd.Flags().StringVar(&opts.CorrelationID, "correlation-id", "", "correlation id sent as X-Request-Id")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("definition")

	return cmd
}

func publishEvent(cmd *cobra.Command, opts *PublishOptions) error {
	event, err := buildEvent(opts, time.Now().UTC())
	if err != nil {
		return err
	}

	correlationID := strings.TrimSpace(opts.CorrelationID)
	if correlationID == "" {
		correlationID = correlation.NewID()
	}

	resp, err := opts.client().PublishEvent(cmd.Context(), event, correlationID)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.Output, resp)
}

func buildEvent(opts *PublishOptions, now time.Time) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(opts.Context), &payload); err != nil {
		return nil, fmt.Errorf("invalid --context JSON: %w", err)
	}

	eventID := strings.TrimSpace(opts.EventID)
	if eventID == "" {
		eventID = uuid.NewString()
	}
	occurredAt := strings.TrimSpace(opts.OccurredAt)
	if occurredAt == "" {
		occurredAt = now.Format(time.RFC3339Nano)
	}

	deactivate := make([]string, 0, len(opts.Deactivate))
	for _, id := range opts.Deactivate {
		if id = strings.TrimSpace(id); id != "" {
			deactivate = append(deactivate, id)
		}
	}
	if !opts.Create && len(deactivate) == 0 {
		return nil, fmt.Errorf("--deactivate is required when --create=false")
	}

	event := map[string]any{
		"event_id":          eventID,
		"occurred_at":       occurredAt,
		"source":            strings.TrimSpace(opts.Source),
		"nba_definition_id": strings.TrimSpace(opts.DefinitionID),
		"context":           payload,
		"create_nba":        opts.Create,
	}
	setIfPresent(event, "account_id", opts.AccountID)
	setIfPresent(event, "enterprise_number", opts.EnterpriseNumber)
	setIfPresent(event, "contact_id", opts.ContactID)
	if len(deactivate) > 0 {
		event["deactivate_nba_ids"] = deactivate
	}
	return event, nil
}

func setIfPresent(event map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		event[key] = value
	}
}
