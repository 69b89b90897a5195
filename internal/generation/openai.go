// Package generation implements the generative content collaborators on top
// of the OpenAI API: newsletter intros, narrative collation, question
// suggestions (chat completions) and header art (image generation).
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/loopyhq/loopy/internal/services"
)

// api is the slice of the OpenAI client the collaborators use; tests
// substitute a stub.
type api interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// Config selects models for the two call kinds.
type Config struct {
	APIKey     string
	Model      string // chat model, e.g. gpt-4o-mini
	ImageModel string // image model, e.g. dall-e-3
}

// Client talks to OpenAI. Errors are returned as-is; fallback selection is
// the collation engine's job, never the client's.
type Client struct {
	api        api
	model      string
	imageModel string
	logger     *zap.Logger
}

var _ services.Generator = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		logger:     logger,
	}
}

func (c *Client) chat(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("chat completion failed", zap.Error(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// SuggestQuestions asks for five prompt ideas as a JSON object of the shape
// {"questions": [...]}.
func (c *Client) SuggestQuestions(ctx context.Context, category, description string, existing []string) ([]string, error) {
	prompt := fmt.Sprintf(`Suggest 5 unique, engaging, and mostly lighthearted questions for a %s newsletter.
The group description is: %q.

RULES:
1. One question MUST be: "Share a photo of the highlight of your week."
2. The other 4 questions should be lighthearted, fun, and relevant to the group's description.
3. Avoid these existing questions: %s.
4. Keep the questions short and open-ended.

Return ONLY a JSON object: {"questions": ["...", "..."]}`,
		category, description, strings.Join(existing, ", "))

	content, err := c.chat(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w", err)
	}
	return parsed.Questions, nil
}

// GenerateIntro writes the editor's letter for the next edition.
func (c *Client) GenerateIntro(ctx context.Context, loopName string, responses []services.Response, members []services.Member) (string, error) {
	prompt := fmt.Sprintf(`Write a warm, engaging, and slightly poetic newsletter introduction for a group called %q.
The tone should be cozy and connective.
Here is a summary of what members have been up to recently:
%s

Make it feel like a professional editor wrote a sweet preamble to a family or friends magazine. Keep it under 150 words.`,
		loopName, summarizeResponses(responses, members))
	return c.chat(ctx, prompt, false)
}

// GenerateNarrative weaves every reply into one flowing story, preserving
// question order and crediting members by name.
func (c *Client) GenerateNarrative(ctx context.Context, loopName string, questions []services.Question, responses []services.Response, members []services.Member) (string, error) {
	var sb strings.Builder
	for _, group := range services.GroupByQuestion(questions, responses, members) {
		fmt.Fprintf(&sb, "Prompt: %s\n", group.QuestionText)
		for _, entry := range group.Entries {
			fmt.Fprintf(&sb, "- %s said: %s\n", entry.Member.Name, entry.Answer)
		}
	}
	prompt := fmt.Sprintf(`Weave the following replies from a group called %q into one cohesive, magazine-style narrative.
Keep the prompts in the given order, credit each member by first name, and quote or closely paraphrase their own words.
Warm and editorial, no headings, no bullet points. Keep it under 400 words.

%s`, loopName, sb.String())
	return c.chat(ctx, prompt, false)
}

// GenerateHeaderImage produces banner art for the theme and returns it as a
// data URI so the reference stays self-contained like any other image URL.
func (c *Client) GenerateHeaderImage(ctx context.Context, theme string) (string, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model: c.imageModel,
		Prompt: fmt.Sprintf("An artistic, minimalist, high-quality banner image for a newsletter. Theme: %s. "+
			"Aesthetic: Soft watercolor, pastel colors, clean composition, professional photography style.", theme),
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		c.logger.Warn("image generation failed", zap.Error(err))
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", fmt.Errorf("image generation returned no data")
	}
	return "data:image/png;base64," + resp.Data[0].B64JSON, nil
}

func summarizeResponses(responses []services.Response, members []services.Member) string {
	byID := make(map[string]string, len(members))
	for _, m := range members {
		byID[m.ID] = m.Name
	}
	lines := make([]string, 0, len(responses))
	for _, r := range responses {
		name, ok := byID[r.MemberID]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s answered: %s", name, r.Answer))
	}
	return strings.Join(lines, "\n")
}
