package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// extractionPromptTemplateID tags proposals with the prompt revision that
// produced them, so reviewers can discount output from retired prompts.
const extractionPromptTemplateID = "extract-proposals/v1"

const extractionPrompt = `You are an analyst reading project conversations. Extract every decision, assumption, risk and open question the text contains.

Respond with a JSON array. Each element must have:
  "type": one of "decision", "assumption", "risk", "question"
  "statement": the extracted statement, in one sentence
  "confidence": your confidence in the extraction, 0.0 to 1.0
  "context": (optional) the fragment of the text it came from

Respond with the JSON array only, no prose.

Text:
%s`

// extractedItem is one suggestion in the provider's response. Anything the
// model adds beyond these fields is ignored.
type extractedItem struct {
	Type       string   `json:"type"`
	Statement  string   `json:"statement"`
	Confidence *float64 `json:"confidence"`
	Context    string   `json:"context,omitempty"`
}

// ExtractionService turns free-form project text into pending proposals via
// the AI provider. The provider's statements are stored verbatim; nothing
// it produces becomes a real record until a human accepts the proposal.
type ExtractionService struct {
	ai        ports.AIService
	proposals *ProposalService
	modelName string
	logger    *zap.Logger
}

// NewExtractionService creates a new extraction service. modelName is
// recorded on every proposal the provider produces.
func NewExtractionService(ai ports.AIService, proposals *ProposalService, modelName string, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		ai:        ai,
		proposals: proposals,
		modelName: modelName,
		logger:    logger,
	}
}

// Extract runs the provider over the text and enqueues one pending proposal
// per well-formed suggestion. Suggestions with an unknown type or a missing
// or out-of-range confidence are dropped and logged, never stored. intentID
// may be empty when the conversation precedes any intent.
func (s *ExtractionService) Extract(ctx context.Context, tenantID, intentID, text string) ([]*entities.Proposal, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError("text to extract from is required")
	}
	if !s.ai.IsAvailable(ctx) {
		return nil, errors.NewUnavailableError("ai provider")
	}

	raw, err := s.ai.Complete(ctx, fmt.Sprintf(extractionPrompt, text), ports.CompletionOptions{
		Temperature: 0.1,
		MaxTokens:   2048,
		Format:      "json",
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	items, err := parseExtractionResponse(raw)
	if err != nil {
		s.logger.Warn("provider returned unparseable extraction response",
			zap.String("tenantId", tenantID),
			zap.Error(err),
		)
		return nil, errors.NewExternalError("ai provider", err)
	}

	proposals := make([]*entities.Proposal, 0, len(items))
	for _, item := range items {
		proposalType := entities.ProposalType(item.Type)
		if !proposalType.IsValid() {
			s.logger.Warn("dropping extraction with unknown type",
				zap.String("tenantId", tenantID),
				zap.String("type", item.Type),
			)
			continue
		}
		if item.Statement == "" {
			s.logger.Warn("dropping extraction without statement",
				zap.String("tenantId", tenantID),
				zap.String("type", item.Type),
			)
			continue
		}
		if item.Confidence == nil || *item.Confidence < 0 || *item.Confidence > 1 {
			s.logger.Warn("dropping extraction with bad confidence",
				zap.String("tenantId", tenantID),
				zap.String("type", item.Type),
			)
			continue
		}

		proposal, err := s.proposals.Submit(ctx, tenantID, intentID, proposalType, itemContent(item), extractionPromptTemplateID, s.modelName, item.Confidence)
		if err != nil {
			return proposals, fmt.Errorf("failed to enqueue extracted proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}

	s.logger.Info("extraction finished",
		zap.String("tenantId", tenantID),
		zap.String("intentId", intentID),
		zap.Int("suggested", len(items)),
		zap.Int("enqueued", len(proposals)),
	)
	return proposals, nil
}

// itemContent preserves the provider's statement verbatim. When the item
// carries context the content becomes a JSON payload so acceptance can
// recover both parts.
func itemContent(item extractedItem) string {
	if item.Context == "" {
		return item.Statement
	}
	payload, err := json.Marshal(proposalPayload{Statement: item.Statement, Context: item.Context})
	if err != nil {
		return item.Statement
	}
	return string(payload)
}

// parseExtractionResponse decodes the provider's JSON, tolerating markdown
// code fences and a {"proposals": [...]} wrapper.
func parseExtractionResponse(raw string) ([]extractedItem, error) {
	cleaned := stripCodeFences(raw)

	var items []extractedItem
	if err := json.Unmarshal([]byte(cleaned), &items); err == nil {
		return items, nil
	}

	var wrapper struct {
		Proposals []extractedItem `json:"proposals"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
		return nil, fmt.Errorf("response is neither a JSON array nor a proposals object: %w", err)
	}
	return wrapper.Proposals, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
