package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/writeitgreat/proposal-eval/internal/utils"
)

// Judgment calls beyond this many characters of proposal text get truncated to
// stay within the model's context window.
const maxPromptChars = 50000

const systemPrompt = "You are an expert literary agent and book proposal evaluator for " +
	"Write It Great LLC, an elite ghostwriting firm. Respond only with valid JSON."

type openAIClient struct {
	client openai.Client
	model  string
	logger *utils.Logger
}

func NewOpenAIClient(apiKey, model string, logger *utils.Logger) Client {
	return &openAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

type scorePayload struct {
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
}

func (c *openAIClient) Score(ctx context.Context, req Request) (*Result, *Failure) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &Failure{Reason: ReasonInvalidResponseShape, Err: fmt.Errorf("empty choices")}
	}

	content := stripFences(resp.Choices[0].Message.Content)

	var payload scorePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		c.logger.Error("Judgment response is not valid JSON", "category", req.CategoryKey, "error", err)
		return nil, &Failure{Reason: ReasonInvalidResponseShape, Err: fmt.Errorf("response is not valid JSON: %w", err)}
	}
	if payload.Score == nil {
		return nil, &Failure{Reason: ReasonInvalidResponseShape, Err: fmt.Errorf("response missing score field")}
	}
	if *payload.Score < 0 || *payload.Score > 100 {
		// Out-of-range scores violate the contract. Report the violation so
		// the stage retries instead of silently clamping and trusting it.
		return nil, &Failure{
			Reason: ReasonInvalidResponseShape,
			Err:    fmt.Errorf("score %v outside [0,100]", *payload.Score),
		}
	}

	return &Result{Score: *payload.Score, Rationale: payload.Rationale}, nil
}

func buildPrompt(req Request) string {
	text := req.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	return fmt.Sprintf(`Evaluate ONLY the %q aspect of the book proposal below.

%s

AUTHOR: %s
BOOK TITLE: %s

PROPOSAL TEXT:
%s

---

SCORING GUIDELINES:
- 90-100: Exceptional, ready for top-tier publishers
- 80-89: Strong, minor improvements needed
- 70-79: Good foundation, some gaps to address
- 60-69: Promising but needs significant work
- 50-59: Weak, major revisions required
- Below 50: Not ready for submission

Respond ONLY with a valid JSON object (no markdown, no code blocks):
{"score": <0-100>, "rationale": "2-3 sentence assessment of this category"}`,
		req.CategoryName, req.CategoryGuidance, req.AuthorName, req.BookTitle, text)
}

func classifyError(err error) *Failure {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return &Failure{Reason: ReasonRateLimited, Err: err}
		}
		return &Failure{Reason: ReasonServiceUnavailable, Err: err}
	}
	// Timeouts, connection resets, context deadlines.
	return &Failure{Reason: ReasonServiceUnavailable, Err: err}
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
