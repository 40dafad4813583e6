package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders whole dollars with thousands separators, e.g. $1,650,000
func FormatPrice(amount int64) string {
	return pricePrinter.Sprintf("$%d", amount)
}
