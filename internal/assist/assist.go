// Package assist drafts answers to questions with a generative model.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = "You are a knowledgeable assistant answering questions on a Q&A site. " +
	"Answers should be accurate, clear and well structured, with examples where they help. " +
	"Write in Markdown."

// ErrEmptyDraft is returned when the model produces no text.
var ErrEmptyDraft = errors.New("model returned an empty draft")

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client drafts answers through the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a drafting client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("assist API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{client: client, model: opts.Model, timeout: opts.Timeout}, nil
}

// Model returns the model name drafts are generated with.
func (c *Client) Model() string {
	return c.model
}

// Draft generates a Markdown answer to a question.
func (c *Client) Draft(ctx context.Context, title, body string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(Prompt(title, body)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.7),
			TopP:              genai.Ptr[float32](1),
			MaxOutputTokens:   2048,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyDraft
	}
	return text, nil
}

// Prompt builds the user prompt for a question.
func Prompt(title, body string) string {
	var b strings.Builder
	b.WriteString("Please provide a detailed, accurate answer to the following question.\n\n")
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(title))
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	b.WriteString("\n\nAddress the question directly.")
	return b.String()
}
