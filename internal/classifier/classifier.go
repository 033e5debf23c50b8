package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/harborline/quartermast/internal/anthropic"
	"github.com/harborline/quartermast/internal/extraction"
)

// Classifier runs the LLM classification + extraction pass over one email.
type Classifier struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func New(llm *anthropic.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: llm, logger: logger}
}

type llmResponse struct {
	Classification Classification               `json:"classification"`
	Extraction     map[string]map[string]string `json:"extraction"`
}

// Analyze classifies the email and extracts partial shipment data. Any
// failure here is the caller's signal to treat the message as confidence 0.
func (c *Classifier) Analyze(ctx context.Context, sender, subject, body string) (*Result, error) {
	prompt := fmt.Sprintf(userPrompt, sender, subject, body)

	raw, err := c.llm.Complete(ctx, systemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, 2048)
	if err != nil {
		return nil, fmt.Errorf("llm classification: %w", err)
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		c.logger.Error("failed to parse classification response", "error", err, "raw", raw)
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	resp.Classification.Confidence = clamp01(resp.Classification.Confidence)
	resp.Classification.ConfirmationConfidence = clamp01(resp.Classification.ConfirmationConfidence)

	c.logger.Info("email classified",
		"email_type", resp.Classification.EmailType,
		"sender_type", resp.Classification.SenderType,
		"confidence", resp.Classification.Confidence,
		"is_confirmation", resp.Classification.IsConfirmation,
		"extraction_categories", len(resp.Extraction),
	)

	return &Result{
		Classification: resp.Classification,
		Extraction:     extraction.Partial(resp.Extraction),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
