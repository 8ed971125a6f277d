// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package economy

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders currency amounts with grouping separators.
type Formatter struct {
	Prefix   string
	Suffix   string
	Decimals int
	printer  *message.Printer
}

// NewFormatter creates a formatter for the given locale tag. Unknown tags fall
// back to English.
func NewFormatter(locale, prefix, suffix string, decimals int) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Formatter{
		Prefix:   prefix,
		Suffix:   suffix,
		Decimals: max(decimals, 0),
		printer:  message.NewPrinter(tag),
	}
}

// Format renders amount, e.g. "$1,250.00".
func (f Formatter) Format(amount float64) string {
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + f.Prefix + p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(f.Decimals),
		number.MaxFractionDigits(f.Decimals),
	)) + f.Suffix
}
