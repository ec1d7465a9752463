package ai

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversational turn.
type Message struct {
	Role    string
	Content string
}

// Tool describes a function the model may call. Parameters doubles as the
// schema tool arguments are validated against.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

type Request struct {
	System    string
	Messages  []Message
	Tool      *Tool
	ForceTool bool
	// JSON asks for a bare JSON object when no tool is given.
	JSON bool
}

type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

type Response struct {
	Text     string
	ToolCall *ToolCall
}
