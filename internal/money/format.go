package money

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// String renders the amount for logs and emails, e.g. "EUR -6.00".
func (m Money) String() string {
	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		unit = currency.EUR
	}
	scale := math.Pow10(m.Precision)
	p := message.NewPrinter(language.Dutch)
	return p.Sprintf("%v %.*f", unit, m.Precision, float64(m.Amount)/scale)
}
