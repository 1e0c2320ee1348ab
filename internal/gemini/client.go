// Package gemini wraps the hosted generative-language API behind a small
// chat-oriented client: role-tagged history in, streamed text fragments out.
package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/stoky/golemchat/internal/models"
)

// systemPrompt is the assistant persona sent with every request.
const systemPrompt = `You are Golem AI, a polite, friendly and very helpful assistant. You were created by Stoky to help users with all kinds of questions and tasks.

Your personality:
- Always polite and respectful towards the user
- Answers are clear and well structured
- You use language that is easy to understand
- Always ready to help wholeheartedly
- If you are not sure about something, you say so honestly
- You use Markdown formatting for tidy answers

When answering with code, always use code blocks tagged with the matching language, for example ` + "```go or ```python" + `.

Opening greeting: "Hello! I am Golem AI, ready to help you. What can I do for you today?"`

// defaultImagePrompt is sent when the user attaches an image without text.
const defaultImagePrompt = "Describe this image"

// The remote service tags assistant turns with the "model" role.
const (
	remoteRoleUser  = "user"
	remoteRoleModel = "model"
)

// Turn is one role-tagged history entry in a request.
type Turn struct {
	Role models.Role
	Text string
}

// Client talks to the hosted API.
type Client struct {
	genai *genai.Client

	model           string
	systemPrompt    string
	maxOutputTokens int32
	temperature     float32
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithSystemPrompt overrides the built-in persona prompt.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		if prompt != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithMaxOutputTokens overrides the output size bound.
func WithMaxOutputTokens(n int32) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxOutputTokens = n
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) ClientOption {
	return func(c *Client) {
		c.temperature = t
	}
}

// NewClient creates a client authenticated with the given API key.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is empty")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	c := &Client{
		genai:           gc,
		model:           models.DefaultModel,
		systemPrompt:    systemPrompt,
		maxOutputTokens: 8192,
		temperature:     0.7,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model the client sends requests to.
func (c *Client) Model() string {
	return c.model
}

// StreamMessage sends one turn and streams the reply. Fragments are handed
// to onChunk strictly in arrival order; the full concatenated text is
// returned on success. On failure the text accumulated so far is returned
// alongside the error.
func (c *Client) StreamMessage(ctx context.Context, prompt string, history []Turn, image *models.ImageData, onChunk func(chunk string)) (string, error) {
	chat, err := c.genai.Chats.Create(ctx, c.model, c.generationConfig(), buildHistory(history))
	if err != nil {
		return "", fmt.Errorf("failed to start chat: %w", err)
	}

	start := time.Now()
	var full string
	for resp, err := range chat.SendMessageStream(ctx, buildParts(prompt, image)...) {
		if err != nil {
			return full, err
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full += chunk
		if onChunk != nil {
			onChunk(chunk)
		}
	}

	log.Debug().
		Str("model", c.model).
		Int("history", len(history)).
		Dur("elapsed", time.Since(start)).
		Int("chars", len(full)).
		Msg("stream complete")
	return full, nil
}

// SendMessage sends one turn and returns the complete reply text.
func (c *Client) SendMessage(ctx context.Context, prompt string, history []Turn, image *models.ImageData) (string, error) {
	chat, err := c.genai.Chats.Create(ctx, c.model, c.generationConfig(), buildHistory(history))
	if err != nil {
		return "", fmt.Errorf("failed to start chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, buildParts(prompt, image)...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: c.systemPrompt}},
		},
		MaxOutputTokens: c.maxOutputTokens,
		Temperature:     genai.Ptr(c.temperature),
	}
}

// buildHistory converts stored turns into the remote representation. The
// internal assistant role maps to the service's "model" role; user maps
// unchanged.
func buildHistory(history []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := remoteRoleUser
		if t.Role == models.RoleAssistant {
			role = remoteRoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	return out
}

// buildParts assembles the live turn. An attached image precedes the text;
// an empty prompt with an image falls back to the default prompt.
func buildParts(prompt string, image *models.ImageData) []genai.Part {
	if image == nil {
		return []genai.Part{{Text: prompt}}
	}
	if prompt == "" {
		prompt = defaultImagePrompt
	}
	return []genai.Part{
		{InlineData: &genai.Blob{Data: image.Data, MIMEType: image.MIMEType}},
		{Text: prompt},
	}
}
