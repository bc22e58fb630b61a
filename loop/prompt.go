package loop

import (
	"fmt"

	"github.com/tbxark/formpilot/extract"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/tool"
)

const systemPromptTemplate = `You are a helpful assistant that helps the user fill out a registration form.
Ask for the information the form needs, one or two fields at a time.
The form data follows this JSON schema:

%s

Whenever the user gives you new information, call the %s tool with the complete form data you have so far.
The tool returns the normalized form data or a list of problems; explain the problems in plain words.
When you repeat the current form data, write it as "%s {...}" followed by the JSON object.
The country must be the United States.
If the user message is not related to the form, politely steer the conversation back to the form.`

// SystemPrompt renders the default agent instructions with the record schema embedded.
func SystemPrompt() (string, error) {
	schemaJSON, err := record.Schema()
	if err != nil {
		return "", fmt.Errorf("render record schema failed: %w", err)
	}
	return fmt.Sprintf(systemPromptTemplate, schemaJSON, tool.ValidateFormDataName, extract.Marker), nil
}

type ProducerOption func(*producerOptions)

type producerOptions struct {
	systemPrompt string
}

func WithSystemPrompt(prompt string) ProducerOption {
	return func(o *producerOptions) {
		o.systemPrompt = prompt
	}
}

func resolveProducerOptions(opts []ProducerOption) (*producerOptions, error) {
	o := &producerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.systemPrompt == "" {
		prompt, err := SystemPrompt()
		if err != nil {
			return nil, err
		}
		o.systemPrompt = prompt
	}
	return o, nil
}
