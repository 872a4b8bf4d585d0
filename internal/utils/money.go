package utils

import (
	"strconv"
	"strings"
)

// Currency is the display currency for all amounts
const Currency = "RWF"

// FormatAmount renders an amount with thousands separators, e.g. 15,000
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatRWF renders an amount with the currency suffix, e.g. 15,000 RWF
func FormatRWF(amount int64) string {
	return FormatAmount(amount) + " " + Currency
}
