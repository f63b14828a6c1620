package types

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`    // user, assistant, system
	Content string `json:"content"` // message text
}

// Tool represents a tool/function definition that can be called by the LLM
type Tool struct {
	Name        string                 `json:"name"`        // tool name
	Description string                 `json:"description"` // what the tool does
	Parameters  map[string]interface{} `json:"parameters"`  // JSON schema for parameters
}

// ToolCall represents a tool call made by the LLM
type ToolCall struct {
	ID        string                 `json:"id"`        // unique call ID
	Name      string                 `json:"name"`      // tool name
	Arguments map[string]interface{} `json:"arguments"` // tool arguments
}

// RequestSchema returns the single-field {request: string} parameter schema
// used when a specialist agent is exposed as a tool.
func RequestSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"request": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"request"},
	}
}
