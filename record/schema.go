package record

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
)

// Schema describes Record as a JSON Schema document for agent prompts.
func Schema() (string, error) {
	s := jsonschema.Reflect(&Record{})
	s.Title = "Registration form"
	s.Description = "Contact details of the person registering, with a mailing address in the United States."
	data, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(data), nil
}
