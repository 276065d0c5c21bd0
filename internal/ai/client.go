// Package ai wraps the hosted text-completion service behind a small typed
// client. It is the only component that talks to the model: document analysis
// (structured JSON output with a fixed fallback) and conversational replies
// both go through it.
//
// Contract notes:
//   - Analyze makes exactly one non-streaming completion call at low
//     temperature and parses the response strictly against the Analysis
//     shape. An empty response is an error (the caller reverts the document);
//     a non-empty but unparseable response yields FallbackAnalysis instead of
//     an error, so the document still completes with placeholder data.
//   - Chat makes one call at a higher temperature and returns the text
//     verbatim, substituting a fixed apology string when the service returns
//     no content.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion is returned when the completion service responds without
// any content. Unlike malformed content, this is treated as a transient
// failure and propagated to the caller.
var ErrEmptyCompletion = errors.New("ai: empty completion response")

// DefaultModel is the completion model used when none is configured.
const DefaultModel = "gpt-4.1-nano"

// apologyReply is returned by Chat when the service produces no content.
const apologyReply = "I apologize, but I couldn't generate a response. Please try again."

// categoryContext maps a document category to the framing string embedded in
// the analysis prompt.
var categoryContext = map[string]string{
	"business": "business contracts, agreements, and legal documents",
	"citizen":  "consumer rights, legal notices, and civic documents",
	"student":  "academic policies, housing agreements, and educational contracts",
}

// Analysis is the structured result of a document analysis. Its JSON shape is
// a public contract with the model: the prompt instructs the model to answer
// in exactly this form, and the lifecycle controller persists it field for
// field.
type Analysis struct {
	Summary       string         `json:"summary"`
	KeyPoints     []string       `json:"keyPoints"`
	RiskLevel     string         `json:"riskLevel"`
	GlossaryTerms []GlossaryPair `json:"glossaryTerms"`
}

// GlossaryPair is one term/definition pair in model output order.
type GlossaryPair struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// FallbackAnalysis returns the fixed placeholder payload substituted when the
// model responds with content that cannot be parsed as the expected shape.
func FallbackAnalysis() *Analysis {
	return &Analysis{
		Summary:       "Document analysis completed. Please review the original document for details.",
		KeyPoints:     []string{"Document uploaded successfully", "AI analysis in progress"},
		RiskLevel:     "medium",
		GlossaryTerms: []GlossaryPair{},
	}
}

// Client calls the completion service. It is safe for concurrent use.
type Client struct {
	api         *openai.Client
	model       string
	analyzeTemp float32
	chatTemp    float32
}

// Option customizes a Client.
type Option func(*Client)

// WithModel overrides the completion model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithTemperatures overrides the sampling temperatures used for analysis and
// chat respectively. Analysis stays low to favor determinism; chat runs
// higher for varied phrasing.
func WithTemperatures(analyze, chat float32) Option {
	return func(c *Client) {
		c.analyzeTemp = analyze
		c.chatTemp = chat
	}
}

// NewClient builds a Client against the given endpoint and credential. An
// empty baseURL keeps the library default.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	c := &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       DefaultModel,
		analyzeTemp: 0.3,
		chatTemp:    0.7,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// analysisPrompt builds the single analysis prompt embedding the
// category-specific framing and the raw document text.
func analysisPrompt(text, category string) string {
	framing, ok := categoryContext[category]
	if !ok {
		framing = "legal documents"
	}
	return fmt.Sprintf(`Analyze this %s document and provide:

1. A comprehensive summary (2-3 paragraphs)
2. 5-7 key points or clauses
3. Risk assessment (low/medium/high)
4. Important legal terms with definitions

Document text:
%s

Respond in JSON format:
{
  "summary": "...",
  "keyPoints": ["...", "..."],
  "riskLevel": "low|medium|high",
  "glossaryTerms": [{"term": "...", "definition": "..."}, ...]
}`, framing, text)
}

// Analyze runs a single analysis completion over the document text.
//
// Failure policy (deliberately asymmetric, mirrored by the lifecycle
// controller's tests):
//   - transport error or empty content → error (document reverts to uploaded)
//   - content present but not the expected JSON shape → FallbackAnalysis, nil
func (c *Client) Analyze(ctx context.Context, text, category string) (*Analysis, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(text, category)},
		},
		Temperature: c.analyzeTemp,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: analyze completion: %w", err)
	}
	content := completionContent(resp)
	if content == "" {
		return nil, ErrEmptyCompletion
	}

	var out Analysis
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		log.Warn().Err(err).Str("category", category).Msg("unparseable analysis response; using fallback payload")
		return FallbackAnalysis(), nil
	}
	// Shape validation beyond mere syntax: an unknown risk tag means the model
	// ignored the contract, so the response is treated as malformed too.
	if !validRisk(out.RiskLevel) {
		log.Warn().Str("risk_level", out.RiskLevel).Msg("analysis response outside contract shape; using fallback payload")
		return FallbackAnalysis(), nil
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	if out.GlossaryTerms == nil {
		out.GlossaryTerms = []GlossaryPair{}
	}
	return &out, nil
}

// chatSystemPrompt builds the assistant's system instruction, embedding the
// category and any document-derived context.
func chatSystemPrompt(contextText, category string) string {
	if category == "" {
		category = "general"
	}
	p := fmt.Sprintf(`You are Legal Uplifter AI, a helpful legal assistant specializing in %s legal matters.
Provide clear, accurate legal information while always reminding users that this is not legal advice and they should consult with a qualified attorney for specific legal matters.`, category)
	if contextText != "" {
		p += "\n\nContext from document: " + contextText
	}
	return p
}

// Chat generates one conversational reply to message. contextText and
// category may be empty when the session has no linked document. An empty
// service response yields the fixed apology string rather than an error;
// transport errors propagate.
func (c *Client) Chat(ctx context.Context, message, contextText, category string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt(contextText, category)},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: c.chatTemp,
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	content := completionContent(resp)
	if content == "" {
		return apologyReply, nil
	}
	return content, nil
}

// completionContent extracts the trimmed first-choice content, or "".
func completionContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func validRisk(r string) bool {
	return r == "low" || r == "medium" || r == "high"
}
