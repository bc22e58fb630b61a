// Package tool exposes record validation as an operation an agent can call.
package tool

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/types"
)

const (
	ValidateFormDataName        = "validateFormData"
	ValidateFormDataDescription = "Validate the form data and return the updated form data."
)

// Operation is a synchronous, side-effect free action offered to an agent.
type Operation interface {
	Info() *schema.ToolInfo
	Run(arguments string) record.ValidationResult
}

type ValidateFormData struct {
	info *schema.ToolInfo
}

var _ Operation = (*ValidateFormData)(nil)

func NewValidateFormData() (*ValidateFormData, error) {
	info, err := utils.GoStruct2ToolInfo[record.Record](ValidateFormDataName, ValidateFormDataDescription)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &ValidateFormData{info: info}, nil
}

func (v *ValidateFormData) Info() *schema.ToolInfo {
	return v.info
}

// Run validates the JSON arguments of a tool call. Malformed arguments come
// back as a failed result, never as an error.
func (v *ValidateFormData) Run(arguments string) record.ValidationResult {
	if strings.TrimSpace(arguments) == "" {
		return record.Invalid(types.FieldError{Message: "Arguments are empty; send the candidate record as a JSON object."})
	}
	return record.Validate(arguments)
}

// ParametersSchema returns the JSON Schema of the operation's arguments.
func ParametersSchema(info *schema.ToolInfo) (*jsonschema.Schema, error) {
	if info == nil || info.ParamsOneOf == nil {
		return nil, nil
	}
	return info.ParamsOneOf.ToJSONSchema()
}

type errorPayload struct {
	Error  string            `json:"error"`
	Issues types.FieldErrors `json:"issues,omitempty"`
}

// Payload serializes a result for the agent: the normalized record on success,
// {"error": ..., "issues": [...]} otherwise.
func Payload(res record.ValidationResult) string {
	var (
		out string
		err error
	)
	if res.OK && res.Record != nil {
		out, err = sonic.MarshalString(res.Record)
	} else {
		out, err = sonic.MarshalString(errorPayload{Error: res.Errors.Error(), Issues: res.Errors})
	}
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return out
}

// ErrorResult wraps a message that is not tied to a field.
func ErrorResult(format string, args ...any) record.ValidationResult {
	return record.Invalid(types.FieldError{Message: fmt.Sprintf(format, args...)})
}
