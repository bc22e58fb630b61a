package normalize

// DigitsOnly keeps the ASCII digits of text, in order.
func DigitsOnly(text string) string {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if c := text[i]; c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	return string(out)
}

// IsValidUSPhoneDigits reports whether digits is a ten digit US number whose
// area code does not start with 0 or 1.
func IsValidUSPhoneDigits(digits string) bool {
	if len(digits) != 10 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return digits[0] >= '2'
}

// FormatUSPhone renders ten digits as "(AAA) BBB-CCCC". Any other input is
// returned unchanged.
func FormatUSPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

type PhoneResult struct {
	OK      bool   `json:"ok"`
	Digits  string `json:"digits"`
	Message string `json:"message,omitempty"`
}

// SanitizeUSPhone extracts the digits of a user supplied phone number and
// checks them against the US shape.
func SanitizeUSPhone(input any) PhoneResult {
	s, ok := input.(string)
	if !ok {
		return PhoneResult{Message: "Phone must be a string"}
	}
	digits := DigitsOnly(s)
	if !IsValidUSPhoneDigits(digits) {
		return PhoneResult{
			Digits:  digits,
			Message: "Enter a valid US phone number (10 digits; area code cannot start with 0 or 1)",
		}
	}
	return PhoneResult{OK: true, Digits: digits}
}
