package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"poseai/internal/pose"
)

// Gemini asks a Gemini vision model for landmarks using a constrained
// response schema.
type Gemini struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY not set")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, modelName: modelName}, nil
}

func (g *Gemini) Estimate(ctx context.Context, frame Frame) ([]pose.Keypoint, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.0)
	model.SetTopK(1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = keypointSchema()

	parts := []genai.Part{
		genai.Text(buildKeypointPrompt()),
		genai.ImageData(frame.Format, frame.Data),
	}

	slog.Debug("Sending frame to Gemini", "model", g.modelName, "bytes", len(frame.Data))
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return parseLLMKeypoints(responseText(resp), frame)
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var result strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if txt, ok := part.(genai.Text); ok {
					result.WriteString(string(txt))
				}
			}
		}
	}
	return result.String()
}

func keypointSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"keypoints": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":      {Type: genai.TypeString, Enum: bodyPartNames()},
						"x_percent": {Type: genai.TypeNumber},
						"y_percent": {Type: genai.TypeNumber},
						"score":     {Type: genai.TypeNumber},
					},
					Required: []string{"name", "x_percent", "y_percent", "score"},
				},
			},
		},
		Required: []string{"keypoints"},
	}
}

// ModelInfo describes a model offered by the Gemini API.
type ModelInfo struct {
	Name    string
	Methods []string
}

// ListGeminiModels enumerates the models available to apiKey.
func ListGeminiModels(ctx context.Context, apiKey string) ([]ModelInfo, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	var models []ModelInfo
	iter := client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		models = append(models, ModelInfo{Name: m.Name, Methods: m.SupportedGenerationMethods})
	}
	return models, nil
}
