package analyzer

import (
	"github.com/ccollicutt/faultscope/pkg/parser"
	"github.com/ccollicutt/faultscope/pkg/patterns"
)

// SignatureDetector decides whether an event is the anchor fault.
type SignatureDetector struct {
	provider  string
	signature *patterns.Signature
}

// NewSignatureDetector creates a detector for events from provider whose
// payload contains the signature.
func NewSignatureDetector(provider string, signature *patterns.Signature) *SignatureDetector {
	return &SignatureDetector{provider: provider, signature: signature}
}

// IsAnchor returns the matched signature text when ev is an anchor event.
func (d *SignatureDetector) IsAnchor(ev *parser.ParsedEvent) (string, bool) {
	if ev.Provider != d.provider {
		return "", false
	}
	return d.signature.Match(ev.Data)
}
