package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/llm"
)

const (
	CategoryPositiveFeedback = "positive_feedback"
	CategoryNegativeFeedback = "negative_feedback"
	CategoryQuery            = "query"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Classification is the routing decision for one message.
type Classification struct {
	Category     string
	Sentiment    string
	TicketNumber string
}

var (
	ticketPattern      = regexp.MustCompile(`(?i)(?:ticket\s*#?\s*|#)(\d{6})`)
	exactTicketPattern = regexp.MustCompile(`^\d{6}$`)

	negativeKeywords = []string{"not happy", "bad", "terrible", "issue", "problem", "complain"}
	positiveKeywords = []string{"thank", "great", "good job", "appreciate"}
)

const classifierSystemPrompt = `You are a classifier for banking customer support messages.
You MUST respond with a strict JSON object with keys:
  - "category": one of ["positive_feedback", "negative_feedback", "query"]
  - "sentiment": one of ["positive", "neutral", "negative"]
  - "ticket_number": a 6-digit string if present in the message, otherwise null.

Rules:
- If the user is mainly THANKING, praising or appreciating service, category = "positive_feedback".
- If the user is mainly COMPLAINING, unhappy, or describing a problem, category = "negative_feedback".
- If the user is ASKING about the status of a ticket, requesting help, or asking a question, category = "query".
- If there is a ticket number like 'ticket 650932' or '#650932', extract it as a 6-digit string in "ticket_number".
- Do NOT include any other fields.`

// Classifier maps a raw message to a category, sentiment, and optional
// ticket number. Classification is total: when the completion
// capability fails or returns malformed output, a deterministic keyword
// fallback produces the result.
type Classifier struct {
	llm    llm.Client
	logger *zap.Logger
}

func NewClassifier(client llm.Client, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{llm: client, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, message string) Classification {
	result, err := c.classifyLLM(ctx, message)
	if err != nil {
		c.logger.Warn("classifier completion failed, using keyword fallback", zap.Error(err))
		result = classifyKeywords(message)
	}

	// The ticket scan runs regardless of which path produced the
	// category.
	if result.TicketNumber == "" {
		result.TicketNumber = ExtractTicketNumber(message)
	}

	return result
}

func (c *Classifier) classifyLLM(ctx context.Context, message string) (Classification, error) {
	user := "Classify the following customer message.\n\nMessage:\n" + message + "\n\nReturn ONLY the JSON object."

	raw, err := c.llm.Complete(ctx, classifierSystemPrompt, user, 0)
	if err != nil {
		return Classification{}, err
	}

	var parsed struct {
		Category     string `json:"category"`
		Sentiment    string `json:"sentiment"`
		TicketNumber string `json:"ticket_number"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return Classification{}, err
	}

	result := Classification{
		Category:  parsed.Category,
		Sentiment: parsed.Sentiment,
	}

	switch result.Category {
	case CategoryPositiveFeedback, CategoryNegativeFeedback, CategoryQuery:
	default:
		result.Category = CategoryQuery
	}
	switch result.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
	default:
		result.Sentiment = SentimentNeutral
	}
	if exactTicketPattern.MatchString(parsed.TicketNumber) {
		result.TicketNumber = parsed.TicketNumber
	}

	return result, nil
}

func classifyKeywords(message string) Classification {
	lower := strings.ToLower(message)

	for _, keyword := range negativeKeywords {
		if strings.Contains(lower, keyword) {
			return Classification{Category: CategoryNegativeFeedback, Sentiment: SentimentNegative}
		}
	}
	for _, keyword := range positiveKeywords {
		if strings.Contains(lower, keyword) {
			return Classification{Category: CategoryPositiveFeedback, Sentiment: SentimentPositive}
		}
	}

	return Classification{Category: CategoryQuery, Sentiment: SentimentNeutral}
}

// ExtractTicketNumber scans a message for "ticket 650932", "ticket
// #650932", or "#650932" and returns the 6-digit number, or "".
func ExtractTicketNumber(message string) string {
	match := ticketPattern.FindStringSubmatch(message)
	if match == nil {
		return ""
	}
	return match[1]
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
