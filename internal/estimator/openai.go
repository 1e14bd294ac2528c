package estimator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"poseai/internal/pose"
)

// OpenAI asks an OpenAI vision model for landmarks in JSON mode.
type OpenAI struct {
	client    *openai.Client
	modelName string
}

func NewOpenAI(apiKey, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	return newOpenAIWithConfig(openai.DefaultConfig(apiKey), modelName), nil
}

func newOpenAIWithConfig(cfg openai.ClientConfig, modelName string) *OpenAI {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
	}
}

func (o *OpenAI) Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: buildKeypointPrompt()},
		{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", frame.MIMEType(), base64.StdEncoding.EncodeToString(frame.Data)),
				Detail: openai.ImageURLDetailHigh,
			},
		},
	}

	slog.Debug("Sending frame to OpenAI", "model", o.modelName, "bytes", len(frame.Data))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}
	return parseLLMKeypoints(resp.Choices[0].Message.Content, frame)
}

func (o *OpenAI) Close() error {
	return nil
}
