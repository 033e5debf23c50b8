package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harborline/quartermast/internal/anthropic"
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
)

func llmStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"type": "text", "text": text}},
			"stop_reason": "end_turn",
		})
	}))
}

func TestAnalyze(t *testing.T) {
	payload := `{
		"classification": {"email_type": "quote_request", "sender_type": "customer", "confidence": 0.92, "is_confirmation": false, "confirmation_confidence": 0.1},
		"extraction": {
			"shipment_details": {"origin": "Shanghai, China", "destination": "Hamburg", "container_type": "40HC", "weight": ""},
			"timeline_information": {"shipment_date": "2024-03-15"}
		}
	}`
	server := llmStub(t, payload)
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	got, err := New(llm, nil).Analyze(context.Background(), "buyer@example.com", "Quote request", "body")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Classification.EmailType != "quote_request" || got.Classification.Confidence != 0.92 {
		t.Errorf("classification = %+v", got.Classification)
	}
	if got.Classification.Tag() != decision.TagQuoteRequest {
		t.Errorf("tag = %v, want quote_request", got.Classification.Tag())
	}

	// Present-but-empty must survive as present-but-empty.
	if v, ok := got.Extraction.Get(extraction.CategoryShipment, extraction.FieldWeight); !ok || v != "" {
		t.Errorf("weight = (%q, %v), want present empty string", v, ok)
	}
	if _, ok := got.Extraction.Get(extraction.CategoryShipment, extraction.FieldVolume); ok {
		t.Error("volume should be absent, not present")
	}
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	server := llmStub(t, "Sure! Here is the classification you asked for.")
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	if _, err := New(llm, nil).Analyze(context.Background(), "a@b.c", "subj", "body"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestAnalyze_ClampsConfidence(t *testing.T) {
	payload := `{"classification": {"email_type": "quote_request", "confidence": 1.7, "confirmation_confidence": -0.2}, "extraction": {}}`
	server := llmStub(t, payload)
	defer server.Close()

	llm := anthropic.NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	got, err := New(llm, nil).Analyze(context.Background(), "a@b.c", "subj", "body")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Classification.Confidence != 1.0 || got.Classification.ConfirmationConfidence != 0.0 {
		t.Errorf("confidence clamped wrong: %+v", got.Classification)
	}
}

func TestClassificationTag_Unknown(t *testing.T) {
	c := Classification{EmailType: "newsletter"}
	if c.Tag() != decision.TagUnknown {
		t.Errorf("tag = %v, want unknown", c.Tag())
	}
}
