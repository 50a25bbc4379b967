// Package patterns provides the fixed text patterns used to recognise
// error-code context, fault set/cleared phrasing and the anchor signature
// inside event payloads.
package patterns

import (
	"errors"
	"regexp"
)

// ErrorCodePrefix is the fixed leading part of every error-code token.
const ErrorCodePrefix = "0x20001"

// DefaultSignaturePhrase is the fault phrase that marks an anchor event.
// The double space is part of the phrase as emitted by the instrument.
const DefaultSignaturePhrase = "Device fault detected in  Mass Spectrometer"

var (
	stringBlockPattern  = regexp.MustCompile(`<string>\s*(\S.*)\s*</string>\n*`)
	errorCodePattern    = regexp.MustCompile(ErrorCodePrefix + `([0-3])([0-9A-Fa-f]{2})`)
	errorContextPattern = regexp.MustCompile(`.*EW:\s*(0x.*)\s*=\s*(\S.*\S)\s*<.*>.*`)
	faultClearedPattern = regexp.MustCompile(`.*Fault Cleared:\s*(\S.*\S)\s*`)
	faultSetPattern     = regexp.MustCompile(`.*Fault Set:\s*(\S.*\S)\s*`)
)

// ErrorCodeMatch is a decomposed error-code token.
type ErrorCodeMatch struct {
	// Token is the full matched text, e.g. "0x20001105".
	Token string

	// Category is the single category digit following the prefix.
	Category string

	// Offset is the two hex digits following the category digit.
	Offset string
}

// StringBlocks returns the contents of every <string>...</string> block in s,
// in encounter order.
func StringBlocks(s string) []string {
	matches := stringBlockPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// MatchErrorCode finds the first error-code token in s.
func MatchErrorCode(s string) (ErrorCodeMatch, bool) {
	m := errorCodePattern.FindStringSubmatch(s)
	if m == nil {
		return ErrorCodeMatch{}, false
	}
	return ErrorCodeMatch{Token: m[0], Category: m[1], Offset: m[2]}, true
}

// MatchErrorContext matches an "EW: <code> = <description> <trailer>" line.
// The returned code text is not guaranteed to be a valid token.
func MatchErrorContext(s string) (code, description string, ok bool) {
	m := errorContextPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// FaultSet returns the text following "Fault Set:" in s.
func FaultSet(s string) (string, bool) {
	return capture(faultSetPattern, s)
}

// FaultCleared returns the text following "Fault Cleared:" in s.
func FaultCleared(s string) (string, bool) {
	return capture(faultClearedPattern, s)
}

func capture(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Signature matches the anchor fault phrase inside a payload.
type Signature struct {
	phrase string
	re     *regexp.Regexp
}

// NewSignature compiles a literal phrase into a Signature.
func NewSignature(phrase string) (*Signature, error) {
	if phrase == "" {
		return nil, errors.New("signature phrase is empty")
	}
	re, err := regexp.Compile(`.*(` + regexp.QuoteMeta(phrase) + `).*`)
	if err != nil {
		return nil, err
	}
	return &Signature{phrase: phrase, re: re}, nil
}

// Phrase returns the literal phrase.
func (s *Signature) Phrase() string {
	return s.phrase
}

// Match reports whether text contains the phrase and returns the matched text.
func (s *Signature) Match(text string) (string, bool) {
	return capture(s.re, text)
}
