package record

import (
	"sort"
	"strings"

	"github.com/tbxark/formpilot/types"
)

// Validate checks candidate against the record rules. candidate may be a
// Record, a *Record, a map decoded from JSON, or JSON text as []byte or string.
// On success the returned record is trimmed and its country canonicalized.
func Validate(candidate any) ValidationResult {
	doc, err := toDocument(candidate)
	if err != nil {
		return Invalid(types.FieldError{Field: "", Message: "Record is not valid JSON: " + err.Error()})
	}

	errs := structuralErrors(doc)
	rec := decode(doc)
	for _, fe := range semanticErrors(&rec) {
		if !errs.Covers(fe.Field) {
			errs = append(errs, fe)
		}
	}
	if len(errs) > 0 {
		sortByField(errs)
		return ValidationResult{Errors: errs}
	}

	rec.Address.Country, _ = CanonicalCountry(rec.Address.Country)
	return ValidationResult{OK: true, Record: &rec}
}

// decode reads string leaves from a generic JSON document; anything else is
// left empty for the structural pass to report.
func decode(doc any) Record {
	root, _ := doc.(map[string]any)
	addr, _ := root["address"].(map[string]any)
	return Record{
		Name:  stringField(root, "name"),
		Email: stringField(root, "email"),
		Address: Address{
			Line1:   stringField(addr, "line1"),
			Line2:   stringField(addr, "line2"),
			Street:  stringField(addr, "street"),
			City:    stringField(addr, "city"),
			State:   stringField(addr, "state"),
			Country: stringField(addr, "country"),
			ZipCode: stringField(addr, "zipCode"),
		},
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func sortByField(errs types.FieldErrors) {
	rank := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		rank[f] = i
	}
	pos := func(field string) int {
		if r, ok := rank[field]; ok {
			return r
		}
		return len(fieldOrder)
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return pos(errs[i].Field) < pos(errs[j].Field)
	})
}
