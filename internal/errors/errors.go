// internal/errors/errors.go - Scraping error taxonomy
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a scraping failure. Every kind except KindTotalFailure is
// absorbed inside the pipeline: logged, recorded where useful, and never
// surfaced to callers as a failed operation.
type Kind string

const (
	// KindTransportFailure covers fetch or navigation errors, non-success
	// statuses, and empty bodies. It triggers fetch escalation, never aborts.
	KindTransportFailure Kind = "transport_failure"

	// KindParseFailure covers malformed structured-data blocks and invalid
	// URLs met during resolution. Localized and skipped.
	KindParseFailure Kind = "parse_failure"

	// KindClassificationAmbiguity means no cascade rule matched. Resolves to
	// the unknown page type, a valid terminal state.
	KindClassificationAmbiguity Kind = "classification_ambiguity"

	// KindEnrichmentFailure covers model errors and unparseable responses.
	// Recorded on the record without downgrading assembled fields.
	KindEnrichmentFailure Kind = "enrichment_failure"

	// KindDiscoveryFailure means no candidate cleared the score threshold for
	// one field. The field is omitted; discovery itself still succeeds.
	KindDiscoveryFailure Kind = "discovery_failure"

	// KindTotalFailure means no HTML was obtainable by any fetch strategy.
	// The single condition reported to callers, as an error-typed record.
	KindTotalFailure Kind = "total_failure"
)

// ValidKinds returns all valid error kinds
func ValidKinds() []Kind {
	return []Kind{
		KindTransportFailure, KindParseFailure, KindClassificationAmbiguity,
		KindEnrichmentFailure, KindDiscoveryFailure, KindTotalFailure,
	}
}

// IsValid checks if the kind is a valid value
func (k Kind) IsValid() bool {
	for _, valid := range ValidKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Terminal reports whether this kind ends page processing for the caller
func (k Kind) Terminal() bool {
	return k == KindTotalFailure
}

// ScrapeError carries the failure kind alongside the operation and URL it
// happened on. It wraps the underlying cause for errors.Is / errors.As.
type ScrapeError struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

// New creates a ScrapeError for an operation on a URL
func New(kind Kind, op, url string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Op: op, URL: url, Err: err}
}

// Newf creates a ScrapeError with a formatted message as its cause
func Newf(kind Kind, op, url, format string, args ...interface{}) *ScrapeError {
	return &ScrapeError{Kind: kind, Op: op, URL: url, Err: fmt.Errorf(format, args...)}
}

func (e *ScrapeError) Error() string {
	switch {
	case e.Err == nil && e.URL == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Kind)
	case e.URL == "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.URL, e.Kind, e.Err)
	}
}

// Unwrap returns the underlying cause
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Is matches ScrapeErrors by kind, so callers can test against a template
// like &ScrapeError{Kind: KindTotalFailure} without caring about op or URL.
func (e *ScrapeError) Is(target error) bool {
	var t *ScrapeError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf extracts the failure kind from an error chain. Errors outside the
// taxonomy report KindTransportFailure when they came from IO, so callers
// treat unknown causes as escalation triggers rather than crashes.
func KindOf(err error) (Kind, bool) {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsTerminal reports whether the error chain carries a total failure
func IsTerminal(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind.Terminal()
}
