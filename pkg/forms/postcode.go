package forms

import "strings"

// NormalizePostcode uppercases a UK postcode, strips interior whitespace, and
// re-inserts the single space before the three-character inward code. Inputs
// shorter than five characters are returned cleaned but unspaced.
func NormalizePostcode(postcode string) string {
	clean := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if len(clean) < 5 {
		return clean
	}
	inwardStart := len(clean) - 3
	return clean[:inwardStart] + " " + clean[inwardStart:]
}

// SplitAddress splits a single-line address into house number and street name.
// A comma wins over whitespace as the separator; otherwise the first run of
// spaces divides the two parts.
func SplitAddress(input string) (houseNumber, streetName string) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ""
	}
	if idx := strings.Index(trimmed, ","); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:])
	}
	parts := strings.Fields(trimmed)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
