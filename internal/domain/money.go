package domain

import "fmt"

// FormatCents форматирует сумму в сентаво как десятичное число с двумя
// знаками после точки, например 123456 -> "1234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
