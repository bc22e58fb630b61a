// Package record defines the registration record and the rules that make a
// candidate value a valid one.
//
// Validation runs in two passes. The structural pass checks the candidate
// against a JSON Schema (object shape, required keys, string leaves). The
// semantic pass checks formats and canonicalizes the country. Every error
// found by either pass is returned; a field that failed the structural pass is
// not reported again by the semantic pass.
package record

import "github.com/tbxark/formpilot/types"

const CountryUnitedStates = "United States"

type Address struct {
	Line1   string `json:"line1" jsonschema:"description=Primary street address line. Include house/building number and street name (e.g. 123 Main St)." validate:"required"`
	Line2   string `json:"line2,omitempty" jsonschema:"description=Additional address information such as apartment or suite or unit or floor (optional)."`
	Street  string `json:"street" jsonschema:"description=Street name if captured separately (e.g. Main St). If already in line1 repeat it here." validate:"required"`
	City    string `json:"city" jsonschema:"description=City name within the United States (e.g. San Francisco)." validate:"required"`
	State   string `json:"state" jsonschema:"description=State name within the United States (e.g. California)." validate:"required"`
	Country string `json:"country" jsonschema:"description=Country must be the United States. Accepted inputs: United States / US / USA." validate:"uscountry"`
	ZipCode string `json:"zipCode" jsonschema:"description=5-digit US ZIP code with optional 4-digit extension (ZIP+4)." validate:"zipcode"`
}

type Record struct {
	Name    string  `json:"name" jsonschema:"description=Full legal name of the person filling out the form." validate:"required"`
	Email   string  `json:"email" jsonschema:"description=Primary contact email address (e.g. name@example.com)." validate:"email"`
	Address Address `json:"address" jsonschema:"description=Mailing address located in the United States."`
}

// ValidationResult is either OK with the normalized record or a list of field
// errors in record order.
type ValidationResult struct {
	OK     bool              `json:"ok"`
	Record *Record           `json:"record,omitempty"`
	Errors types.FieldErrors `json:"errors,omitempty"`
}

func Invalid(errs ...types.FieldError) ValidationResult {
	return ValidationResult{Errors: errs}
}

// Fields lists the record's fields as display rows, in record order.
func (r Record) Fields() [][2]string {
	return [][2]string{
		{"name", r.Name},
		{"email", r.Email},
		{"address.line1", r.Address.Line1},
		{"address.line2", r.Address.Line2},
		{"address.street", r.Address.Street},
		{"address.city", r.Address.City},
		{"address.state", r.Address.State},
		{"address.country", r.Address.Country},
		{"address.zipCode", r.Address.ZipCode},
	}
}

// fieldOrder fixes the order errors are reported in.
var fieldOrder = []string{
	"",
	"name",
	"email",
	"address",
	"address.line1",
	"address.line2",
	"address.street",
	"address.city",
	"address.state",
	"address.country",
	"address.zipCode",
}

var fieldLabels = map[string]string{
	"":                "Record",
	"name":            "Name",
	"email":           "Email",
	"address":         "Address",
	"address.line1":   "Address Line 1",
	"address.line2":   "Address Line 2",
	"address.street":  "Street",
	"address.city":    "City",
	"address.state":   "State",
	"address.country": "Country",
	"address.zipCode": "ZIP code",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}
