package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the language model capability. An empty model selects the
// adapter's default.
type Client interface {
	Complete(ctx context.Context, messages []Message, model string) (string, error)

	// Structured returns a JSON-shaped value (usually map[string]any). The
	// schema is advisory; callers must parse the result defensively.
	Structured(ctx context.Context, messages []Message, model string, schema any) (any, error)
}
