// Package redact finds identity-document numbers in OCR output and blurs the
// image regions that contain them.
package redact

import (
	"regexp"
	"strings"
	"unicode"

	"docscanner/internal/service/ocr"
)

// MinConfidence is the inclusive floor below which detections are never matched.
const MinConfidence = 0.4

// Kind names the grammar a text matched.
type Kind string

const (
	KindNone    Kind = ""
	KindPAN     Kind = "PAN"
	KindAadhaar Kind = "AADHAAR"
)

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Match reports which grammar the whole of text matches once whitespace is
// removed. PAN is checked on the uppercased string.
func Match(text string) Kind {
	stripped := stripSpace(text)
	if panPattern.MatchString(strings.ToUpper(stripped)) {
		return KindPAN
	}
	if aadhaarPattern.MatchString(stripped) {
		return KindAadhaar
	}
	return KindNone
}

// IsSensitive reports whether text is a PAN-like or Aadhaar-like number.
func IsSensitive(text string) bool {
	return Match(text) != KindNone
}

// MatchDetection applies Match to detections at or above MinConfidence.
func MatchDetection(d ocr.Detection) Kind {
	if d.Confidence < MinConfidence {
		return KindNone
	}
	return Match(d.Text)
}

// Mask hides all but the first and last character groups of a matched value
// so it can be logged.
func Mask(text string) string {
	s := stripSpace(text)
	switch Match(s) {
	case KindPAN:
		return strings.ToUpper(s[:5]) + "****" + strings.ToUpper(s[9:])
	case KindAadhaar:
		return "********" + s[8:]
	}
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}
