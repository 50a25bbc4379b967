package analyzer

import (
	"strconv"

	"github.com/ccollicutt/faultscope/pkg/patterns"
)

// ParseErrorCode decomposes the first error-code token found in s.
func ParseErrorCode(s string) (ErrorCodeKey, bool) {
	m, ok := patterns.MatchErrorCode(s)
	if !ok {
		return ErrorCodeKey{}, false
	}

	category, err := strconv.Atoi(m.Category)
	if err != nil {
		return ErrorCodeKey{}, false
	}
	offset, err := strconv.ParseUint(m.Offset, 16, 8)
	if err != nil {
		return ErrorCodeKey{}, false
	}

	return ErrorCodeKey{
		Category: Category(category),
		Offset:   uint8(offset),
		token:    m.Token,
	}, true
}

// ExtractErrorCode pulls the error code and its description out of an
// event payload's EW line. It reports false when the payload has no EW line
// or the EW line carries no recognisable code.
func ExtractErrorCode(payload string) (ErrorCodeKey, string, bool) {
	codeText, description, ok := patterns.MatchErrorContext(payload)
	if !ok {
		return ErrorCodeKey{}, "", false
	}

	key, ok := ParseErrorCode(codeText)
	if !ok {
		return ErrorCodeKey{}, "", false
	}

	return key, description, true
}
