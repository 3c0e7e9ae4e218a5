// internal/normalize/stock.go

package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical stock labels. Source pages mix Turkish and English phrasing plus
// schema.org availability URLs; everything folds down to one of these.
const (
	StockAvailable  = "Mevcut"
	StockOutOfStock = "Tükendi"
	StockPreOrder   = "Ön Sipariş"
)

var turkishLower = cases.Lower(language.Turkish)

// stockPhrases is order-sensitive: negated phrases contain their positive
// counterparts ("stokta yok" contains "stokta", "unavailable" contains
// "available"), so the negative block must run first.
var stockPhrases = []struct {
	phrase string
	label  string
}{
	{"stokta yok", StockOutOfStock},
	{"stok yok", StockOutOfStock},
	{"tükendi", StockOutOfStock},
	{"tükenmiştir", StockOutOfStock},
	{"mevcut değil", StockOutOfStock},
	{"satışta değil", StockOutOfStock},
	{"temin edilemiyor", StockOutOfStock},
	{"out of stock", StockOutOfStock},
	{"outofstock", StockOutOfStock},
	{"sold out", StockOutOfStock},
	{"soldout", StockOutOfStock},
	{"unavailable", StockOutOfStock},
	{"discontinued", StockOutOfStock},
	{"ön sipariş", StockPreOrder},
	{"pre-order", StockPreOrder},
	{"preorder", StockPreOrder},
	{"presale", StockPreOrder},
	{"backorder", StockPreOrder},
	{"yakında", StockPreOrder},
	{"stokta var", StockAvailable},
	{"stokta", StockAvailable},
	{"in stock", StockAvailable},
	{"instock", StockAvailable},
	{"limitedavailability", StockAvailable},
	{"limited availability", StockAvailable},
	{"available", StockAvailable},
	{"mevcut", StockAvailable},
	{"satışta", StockAvailable},
	{"hemen teslim", StockAvailable},
}

// NormalizeStockStatus folds a raw availability phrase to a canonical label.
// The input is lowered twice, once Turkish-aware and once plain, because the
// folds disagree on I: Turkish casing turns "TÜKENDİ" into "tükendi" but also
// "InStock" into "ınstock", which would miss the English phrase. A match in
// either fold counts. Unrecognized non-empty input is returned cleaned rather
// than discarded.
func NormalizeStockStatus(raw string) string {
	cleaned := CleanText(raw)
	if cleaned == "" {
		return ""
	}
	turkish := turkishLower.String(cleaned)
	plain := strings.ToLower(cleaned)
	for _, p := range stockPhrases {
		if strings.Contains(turkish, p.phrase) || strings.Contains(plain, p.phrase) {
			return p.label
		}
	}
	return cleaned
}
