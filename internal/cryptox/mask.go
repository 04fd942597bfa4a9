package cryptox

import "strings"

// MaskCardNumber keeps the last four digits: "**** **** **** 1234".
func MaskCardNumber(number string) string {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) < 4 {
		return strings.Repeat("*", len(digits))
	}
	return "**** **** **** " + digits[len(digits)-4:]
}
