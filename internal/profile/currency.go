package profile

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
)

// ParseCurrency validates an ISO 4217 code and returns it upper-cased
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", apperrors.Invalid("unknown currency %q", code)
	}
	return unit.String(), nil
}

// DefaultCurrency infers the currency for a BCP 47 locale such as "en-GB"
func DefaultCurrency(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return constants.DefaultCurrency
	}
	unit, conf := currency.FromTag(tag)
	if conf == language.No {
		return constants.DefaultCurrency
	}
	return unit.String()
}

// FormatAmount renders amount in code with the number conventions of locale
func FormatAmount(amount float64, code, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.NarrowSymbol(unit))
	return symbol + p.Sprintf("%.2f", amount)
}
