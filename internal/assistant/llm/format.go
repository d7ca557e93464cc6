package llm

import (
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/eino-contrib/jsonschema"
)

// ResponseFormat is the JSON schema a structured completion must follow.
type ResponseFormat struct {
	Name   string
	Schema *jsonschema.Schema
}

// FormatFor reflects the json tags of v into a ResponseFormat. Every field
// without omitempty is required and unknown properties are rejected.
func FormatFor(name string, v any) *ResponseFormat {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)
	s.Version = ""
	return &ResponseFormat{Name: name, Schema: s}
}

func (f *ResponseFormat) openAI() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:       f.Name,
			JSONSchema: f.Schema,
			Strict:     true,
		},
	}
}
