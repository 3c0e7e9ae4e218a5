// internal/normalize/normalize_test.go

package normalize

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapse spaces",
			input:    "  hello   world  ",
			expected: "hello world",
		},
		{
			name:     "newlines and tabs",
			input:    "line one\n\t line two",
			expected: "line one line two",
		},
		{
			name:     "non-breaking space",
			input:    "a b",
			expected: "a b",
		},
		{
			name:     "zero-width characters removed",
			input:    "a\u200bb\ufeffc",
			expected: "abc",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only whitespace",
			input:    " \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.expected {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateAtWord(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{
			name:     "within limit unchanged",
			input:    "short title",
			max:      70,
			expected: "short title",
		},
		{
			name:     "cut at word boundary",
			input:    "The quick brown fox jumps over the lazy dog",
			max:      20,
			expected: "The quick brown fox...",
		},
		{
			name:     "trailing punctuation trimmed before ellipsis",
			input:    "First sentence ends here. Second sentence follows it closely.",
			max:      26,
			expected: "First sentence ends here...",
		},
		{
			name:     "single long word",
			input:    "Pneumonoultramicroscopicsilicovolcanoconiosis",
			max:      10,
			expected: "Pneumonoul...",
		},
		{
			name:     "whitespace cleaned first",
			input:    "  padded   text  ",
			max:      70,
			expected: "padded text",
		},
		{
			name:     "zero max",
			input:    "anything",
			max:      0,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateAtWord(tt.input, tt.max); got != tt.expected {
				t.Errorf("TruncateAtWord(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		price    string
		currency string
	}{
		{
			name:     "turkish thousands and decimal comma",
			input:    "1.234,56 ₺",
			price:    "1234.56",
			currency: "TRY",
		},
		{
			name:     "decimal comma with TL suffix",
			input:    "999,00 TL",
			price:    "999.00",
			currency: "TRY",
		},
		{
			name:     "bare decimal point no currency",
			input:    "49.90",
			price:    "49.90",
			currency: "",
		},
		{
			name:     "dollar with grouping comma",
			input:    "$1,299.00",
			price:    "1299.00",
			currency: "USD",
		},
		{
			name:     "european thousands dot only",
			input:    "1.299",
			price:    "1299",
			currency: "",
		},
		{
			name:     "trailing comma group reads as decimal",
			input:    "1,299",
			price:    "1.299",
			currency: "",
		},
		{
			name:     "multiple grouping dots",
			input:    "12.345.678,90 ₺",
			price:    "12345678.90",
			currency: "TRY",
		},
		{
			name:     "swiss apostrophe grouping",
			input:    "1'299.50 CHF",
			price:    "1299.50",
			currency: "CHF",
		},
		{
			name:     "iso code prefix",
			input:    "USD 25",
			price:    "25",
			currency: "USD",
		},
		{
			name:     "unknown three letter code passes through",
			input:    "10 xyz",
			price:    "10",
			currency: "XYZ",
		},
		{
			name:     "no digits at all",
			input:    "Fiyat sorunuz",
			price:    "",
			currency: "",
		},
		{
			name:     "empty",
			input:    "",
			price:    "",
			currency: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, currency := NormalizePrice(tt.input)
			if price != tt.price || currency != tt.currency {
				t.Errorf("NormalizePrice(%q) = (%q, %q), want (%q, %q)",
					tt.input, price, currency, tt.price, tt.currency)
			}
		})
	}
}

func TestNormalizeStockStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "turkish available",
			input:    "Stokta Var",
			expected: StockAvailable,
		},
		{
			name:     "negated phrase beats positive substring",
			input:    "Stokta Yok",
			expected: StockOutOfStock,
		},
		{
			name:     "turkish uppercase dotted i",
			input:    "TÜKENDİ",
			expected: StockOutOfStock,
		},
		{
			name:     "schema availability token",
			input:    "InStock",
			expected: StockAvailable,
		},
		{
			name:     "schema out of stock token",
			input:    "OutOfStock",
			expected: StockOutOfStock,
		},
		{
			name:     "english uppercase",
			input:    "IN STOCK",
			expected: StockAvailable,
		},
		{
			name:     "unavailable beats available substring",
			input:    "Currently unavailable",
			expected: StockOutOfStock,
		},
		{
			name:     "preorder",
			input:    "Pre-Order Now",
			expected: StockPreOrder,
		},
		{
			name:     "turkish preorder",
			input:    "Ön Sipariş",
			expected: StockPreOrder,
		},
		{
			name:     "unrecognized returned cleaned",
			input:    "  ships   eventually ",
			expected: "ships eventually",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStockStatus(tt.input); got != tt.expected {
				t.Errorf("NormalizeStockStatus(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		ref      string
		expected string
	}{
		{
			name:     "absolute path against host",
			base:     "https://shop.example.com/p/red-shoe",
			ref:      "/img/a.jpg",
			expected: "https://shop.example.com/img/a.jpg",
		},
		{
			name:     "protocol-relative inherits scheme",
			base:     "https://shop.example.com",
			ref:      "//cdn.example.com/a.jpg",
			expected: "https://cdn.example.com/a.jpg",
		},
		{
			name:     "absolute passthrough",
			base:     "https://a.example.com",
			ref:      "https://b.example.com/x",
			expected: "https://b.example.com/x",
		},
		{
			name:     "relative file against directory",
			base:     "https://a.example.com/dir/page.html",
			ref:      "other.html",
			expected: "https://a.example.com/dir/other.html",
		},
		{
			name:     "fragment dropped",
			base:     "https://a.example.com",
			ref:      "/x#section",
			expected: "https://a.example.com/x",
		},
		{
			name:     "javascript scheme rejected",
			base:     "https://a.example.com",
			ref:      "javascript:void(0)",
			expected: "",
		},
		{
			name:     "mailto rejected",
			base:     "https://a.example.com",
			ref:      "mailto:x@example.com",
			expected: "",
		},
		{
			name:     "data uri rejected",
			base:     "https://a.example.com",
			ref:      "data:image/png;base64,iVBOR",
			expected: "",
		},
		{
			name:     "malformed base",
			base:     "http://[bad",
			ref:      "/x",
			expected: "",
		},
		{
			name:     "empty ref",
			base:     "https://a.example.com",
			ref:      "",
			expected: "",
		},
		{
			name:     "ref whitespace trimmed",
			base:     "https://a.example.com",
			ref:      "  /x  ",
			expected: "https://a.example.com/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.base, tt.ref); got != tt.expected {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.expected)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "english paragraph",
			input:    "This is a longer paragraph of English text that the trigram detector should classify without any ambiguity at all.",
			expected: "eng",
		},
		{
			name:     "turkish paragraph",
			input:    "Bu ürün stokta bulunmaktadır ve siparişiniz aynı gün içinde hazırlanarak en geç iki iş günü içinde kargoya teslim edilir.",
			expected: "tur",
		},
		{
			name:     "too short",
			input:    "hello",
			expected: "",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.input); got != tt.expected {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
