package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI generates completions through the OpenAI chat API.
type OpenAI struct {
	client chatAPI
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

// NewOpenAIWithClient injects a chat client. Used in tests.
func NewOpenAIWithClient(client chatAPI, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (g *OpenAI) Model() string { return g.model }

func (g *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", Classify(CategoryServiceUnavailable, errors.New("empty choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAI(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Classify(CategoryTimeout, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return Classify(CategoryRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return Classify(CategoryServiceUnavailable, err)
		case apiErr.HTTPStatusCode >= 400:
			return Classify(CategoryInvalidRequest, err)
		}
	}
	return Classify(CategoryServiceUnavailable, fmt.Errorf("chat completion: %w", err))
}
