// internal/scraper/merge.go
package scraper

import "github.com/Burrhanburak/scrape-site/pkg/types"

// The merge combinators make the field-priority policy an explicit call
// sequence: seed is an authoritative overwrite (structured data), fill only
// closes true gaps (selector extraction, heuristics). Empty candidates never
// write; a nil field always means "not found", never "found empty".

// seedString overwrites dst whenever candidate is non-empty
func seedString(dst **string, candidate string) {
	if candidate == "" {
		return
	}
	*dst = types.StringPtr(candidate)
}

// fillString sets dst only when it is still unset and candidate is non-empty
func fillString(dst **string, candidate string) {
	if *dst != nil || candidate == "" {
		return
	}
	*dst = types.StringPtr(candidate)
}

// seedSlice replaces dst whenever candidates carries any value
func seedSlice(dst *[]string, candidates []string) {
	cleaned := nonEmpty(candidates)
	if len(cleaned) == 0 {
		return
	}
	*dst = cleaned
}

// fillSlice sets dst only when it is still empty and candidates carries
// at least one value
func fillSlice(dst *[]string, candidates []string) {
	if len(*dst) > 0 {
		return
	}
	cleaned := nonEmpty(candidates)
	if len(cleaned) == 0 {
		return
	}
	*dst = cleaned
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
