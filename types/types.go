package types

import "strings"

// FieldError attaches a message to one field of a record. Field is a dotted
// path such as "address.zipCode"; an empty Field refers to the record itself.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

// Has reports whether any entry targets field.
func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Covers reports whether field or one of its parents already carries an error.
func (e FieldErrors) Covers(field string) bool {
	for _, fe := range e {
		if fe.Field == field || fe.Field == "" || strings.HasPrefix(field, fe.Field+".") {
			return true
		}
	}
	return false
}

// Fields returns the field paths in order.
func (e FieldErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, fe := range e {
		out = append(out, fe.Field)
	}
	return out
}

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		if fe.Field == "" {
			parts = append(parts, fe.Message)
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}
