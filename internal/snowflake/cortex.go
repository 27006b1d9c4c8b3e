package snowflake

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultCortexModel is used when no model is configured.
const DefaultCortexModel = "openai-gpt-4.1"

// Cortex answers prompts with SNOWFLAKE.CORTEX.COMPLETE. It implements
// compliance.Completer.
type Cortex struct {
	client *Client
	model  string
}

// NewCortex returns a completer that runs through client's connection.
func NewCortex(client *Client, model string) *Cortex {
	if model == "" {
		model = DefaultCortexModel
	}
	return &Cortex{client: client, model: model}
}

// Name identifies the completer in verdicts.
func (c *Cortex) Name() string { return "cortex" }

// Model returns the configured model.
func (c *Cortex) Model() string { return c.model }

// Complete sends prompt to the model. The prompt is bound as a parameter,
// never interpolated.
func (c *Cortex) Complete(ctx context.Context, prompt string) (string, error) {
	var out sql.NullString
	err := c.client.do(ctx, "cortex complete", func() error {
		return c.client.db.QueryRowContext(ctx, c.client.queries.Complete, c.model, prompt).Scan(&out)
	})
	if err != nil {
		return "", err
	}
	if !out.Valid {
		return "", fmt.Errorf("cortex returned no completion")
	}
	return out.String, nil
}
