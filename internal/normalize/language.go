// internal/normalize/language.go

package normalize

import "github.com/abadojack/whatlanggo"

// minDetectionLength guards against calling the detector on fragments too
// short for trigram statistics to mean anything.
const minDetectionLength = 24

// DetectLanguage returns the ISO 639-3 code of the dominant language of
// text, or "" when the sample is too short or the detector is unsure.
func DetectLanguage(text string) string {
	text = CleanText(text)
	if len(text) < minDetectionLength {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}
