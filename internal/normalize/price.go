// internal/normalize/price.go

package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// numericRunRe captures the first digit-bearing run of a raw price string,
// separators included. Everything outside the run is treated as currency
// text. Spaces break the run so side-by-side old/new prices stay apart.
var numericRunRe = regexp.MustCompile(`[0-9][0-9.,']*[0-9]|[0-9]`)

// currencyTable maps lowercased symbols and suffixes to ISO 4217 codes.
// Lookup order: exact match, then substring containment (longest key first),
// then a bare three-letter code is upper-cased and accepted as-is.
var currencyTable = map[string]string{
	"₺":   "TRY",
	"tl":  "TRY",
	"try": "TRY",
	"$":   "USD",
	"usd": "USD",
	"us$": "USD",
	"€":   "EUR",
	"eur": "EUR",
	"£":   "GBP",
	"gbp": "GBP",
	"¥":   "JPY",
	"jpy": "JPY",
	"₹":   "INR",
	"inr": "INR",
	"₽":   "RUB",
	"rub": "RUB",
	"₩":   "KRW",
	"zł":  "PLN",
	"pln": "PLN",
	"chf": "CHF",
	"c$":  "CAD",
	"cad": "CAD",
	"a$":  "AUD",
	"aud": "AUD",
	"r$":  "BRL",
	"brl": "BRL",
	"kr":  "SEK",
	"sek": "SEK",
	"nok": "NOK",
	"dkk": "DKK",
	"aed": "AED",
	"sar": "SAR",
}

var currencyKeys = func() []string {
	keys := make([]string, 0, len(currencyTable))
	for k := range currencyTable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// NormalizePrice splits a raw price string into a decimal-point numeric
// string and an ISO 4217 currency code. Either part may come back empty:
// "49.90" has no currency, "Fiyat sorunuz" has no price. The separator rule
// treats a dot introducing a three-digit group as thousands grouping and the
// last remaining comma as the decimal mark, so "1.234,56 ₺" becomes
// ("1234.56", "TRY") and "49.90" stays "49.90".
func NormalizePrice(raw string) (price, currency string) {
	raw = CleanText(raw)
	if raw == "" {
		return "", ""
	}
	loc := numericRunRe.FindStringIndex(raw)
	if loc == nil {
		return "", lookupCurrency(raw)
	}
	symbol := strings.TrimSpace(raw[:loc[0]] + " " + raw[loc[1]:])
	return normalizeSeparators(raw[loc[0]:loc[1]]), lookupCurrency(symbol)
}

func normalizeSeparators(numeric string) string {
	numeric = strings.Map(func(r rune) rune {
		if r == '\'' {
			return -1
		}
		return r
	}, numeric)

	// Dots that introduce a three-digit group ending at a separator or at
	// the end of the string are grouping, not decimal marks.
	var b strings.Builder
	rs := []rune(numeric)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '.' && isGroupingDot(rs, i) {
			continue
		}
		b.WriteRune(rs[i])
	}
	rs = []rune(b.String())

	// Same for commas, except a trailing group keeps its comma: "1,234"
	// with nothing after it reads as a decimal in the locales we see.
	var c strings.Builder
	for i := 0; i < len(rs); i++ {
		if rs[i] == ',' && isGroupingComma(rs, i) {
			continue
		}
		c.WriteRune(rs[i])
	}
	s := c.String()

	// The last remaining comma is the decimal mark.
	if last := strings.LastIndex(s, ","); last >= 0 {
		s = strings.ReplaceAll(s[:last], ",", "") + "." + s[last+1:]
	}
	return strings.Trim(s, ".")
}

func isGroupingDot(rs []rune, i int) bool {
	j := groupEnd(rs, i)
	if j-i-1 != 3 {
		return false
	}
	return j == len(rs) || rs[j] == ',' || rs[j] == '.'
}

func isGroupingComma(rs []rune, i int) bool {
	j := groupEnd(rs, i)
	if j-i-1 != 3 {
		return false
	}
	return j < len(rs) && (rs[j] == ',' || rs[j] == '.')
}

func groupEnd(rs []rune, i int) int {
	j := i + 1
	for j < len(rs) && unicode.IsDigit(rs[j]) {
		j++
	}
	return j
}

func lookupCurrency(symbol string) string {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	if code, ok := currencyTable[symbol]; ok {
		return code
	}
	for _, key := range currencyKeys {
		if strings.Contains(symbol, key) {
			return currencyTable[key]
		}
	}
	if isBareISOCode(symbol) {
		return strings.ToUpper(symbol)
	}
	return ""
}

func isBareISOCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
