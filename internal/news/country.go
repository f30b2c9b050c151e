package news

import (
	"fmt"
	"strings"
)

// Country is one of the supported retrieval regions.
type Country string

const (
	Singapore Country = "singapore"
	Malaysia  Country = "malaysia"
)

var locales = map[Country]string{
	Singapore: "SG",
	Malaysia:  "MY",
}

// Countries returns every supported country in a stable order.
func Countries() []Country {
	return []Country{Singapore, Malaysia}
}

// ParseCountry validates a country name.
func ParseCountry(s string) (Country, error) {
	c := Country(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := locales[c]; !ok {
		return "", fmt.Errorf("%w: country %q should be one of %s", ErrInvalidInput, s, countryList())
	}
	return c, nil
}

// Locale returns the search localization code (e.g. "SG").
func (c Country) Locale() string {
	return locales[c]
}

func (c Country) String() string {
	return string(c)
}

func countryList() string {
	var names []string
	for _, c := range Countries() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
