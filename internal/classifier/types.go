package classifier

import (
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
)

// Classification is the external classifier's verdict for one message.
type Classification struct {
	EmailType              string  `json:"email_type"`
	SenderType             string  `json:"sender_type"` // customer | forwarder | other
	Confidence             float64 `json:"confidence"`
	IsConfirmation         bool    `json:"is_confirmation"`
	ConfirmationConfidence float64 `json:"confirmation_confidence"`
}

// Tag maps the classifier's free-text email type onto the closed decision
// tag set. Anything unrecognised becomes TagUnknown, which the decider
// treats like any other low-information label.
func (c Classification) Tag() decision.Tag {
	switch c.EmailType {
	case "quote_request":
		return decision.TagQuoteRequest
	case "clarification_response":
		return decision.TagClarification
	case "confirmation":
		return decision.TagConfirmation
	case "forwarder_response":
		return decision.TagForwarderResponse
	case "non_logistics":
		return decision.TagNonLogistics
	}
	return decision.TagUnknown
}

// Result is the combined classification and partial extraction for one
// inbound email. Extraction may be missing categories or fields entirely;
// the merge engine tolerates both.
type Result struct {
	Classification Classification
	Extraction     extraction.Partial
}
