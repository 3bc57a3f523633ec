package models

// Prompt is one chat completion request: a system framing and a user message.
type Prompt struct {
	System string
	User   string
	// Format asks the model for JSON matching a schema. Nil means free text.
	Format *ResponseFormat
}

// ResponseFormat describes a json_schema structured output request.
type ResponseFormat struct {
	Name        string
	Description string
	Schema      map[string]any
}
