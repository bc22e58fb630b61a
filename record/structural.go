package record

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"github.com/tbxark/formpilot/types"
)

const structuralSchemaURL = "record.json"

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

var structuralRaw = map[string]any{
	"$schema":  "https://json-schema.org/draft/2020-12/schema",
	"type":     "object",
	"required": []any{"name", "email", "address"},
	"properties": map[string]any{
		"name":  stringProp(),
		"email": stringProp(),
		"address": map[string]any{
			"type":     "object",
			"required": []any{"line1", "street", "city", "state", "country", "zipCode"},
			"properties": map[string]any{
				"line1":   stringProp(),
				"line2":   stringProp(),
				"street":  stringProp(),
				"city":    stringProp(),
				"state":   stringProp(),
				"country": stringProp(),
				"zipCode": stringProp(),
			},
		},
	},
}

var structuralSchema = mustCompile(structuralRaw)

func mustCompile(raw map[string]any) *jsonschema.Schema {
	data, err := sonic.Marshal(raw)
	if err != nil {
		panic(fmt.Errorf("marshal record schema: %w", err))
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Errorf("parse record schema: %w", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(structuralSchemaURL, doc); err != nil {
		panic(fmt.Errorf("add record schema resource: %w", err))
	}
	compiled, err := c.Compile(structuralSchemaURL)
	if err != nil {
		panic(fmt.Errorf("compile record schema: %w", err))
	}
	return compiled
}

// toDocument turns a candidate into the generic JSON value the schema
// validator works on. Byte slices and strings are read as JSON text.
func toDocument(candidate any) (any, error) {
	var data []byte
	switch v := candidate.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := sonic.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func structuralErrors(doc any) types.FieldErrors {
	err := structuralSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return types.FieldErrors{{Field: "", Message: err.Error()}}
	}
	var out types.FieldErrors
	collectLeaves(ve, &out)
	return dedupe(out)
}

func collectLeaves(ve *jsonschema.ValidationError, out *types.FieldErrors) {
	if len(ve.Causes) == 0 {
		*out = append(*out, describe(ve)...)
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

func describe(ve *jsonschema.ValidationError) types.FieldErrors {
	path := strings.Join(ve.InstanceLocation, ".")
	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		out := make(types.FieldErrors, 0, len(k.Missing))
		for _, missing := range k.Missing {
			field := joinPath(path, missing)
			out = append(out, types.FieldError{Field: field, Message: label(field) + " is required."})
		}
		return out
	case *kind.Type:
		want := "an object"
		if len(k.Want) > 0 && k.Want[0] == "string" {
			want = "a string"
		}
		return types.FieldErrors{{Field: path, Message: fmt.Sprintf("%s must be %s, got %s.", label(path), want, k.Got)}}
	default:
		return types.FieldErrors{{Field: path, Message: label(path) + " has an invalid value."}}
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func dedupe(errs types.FieldErrors) types.FieldErrors {
	seen := make(map[string]bool, len(errs))
	out := errs[:0]
	for _, fe := range errs {
		if seen[fe.Field] {
			continue
		}
		seen[fe.Field] = true
		out = append(out, fe)
	}
	return out
}
