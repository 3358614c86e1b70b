package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// Vertex holds a Vertex AI client shared by every model handle it hands out.
type Vertex struct {
	client *genai.Client
}

// NewVertex connects to Vertex AI for the given project and region using
// application default credentials.
func NewVertex(ctx context.Context, projectID, region string) (*Vertex, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex: project and region are required")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("creating vertex client: %w", err)
	}

	return &Vertex{client: client}, nil
}

// Model returns a handle for the named Gemini model.
func (v *Vertex) Model(name string, temperature float32) Model {
	return &vertexModel{
		client:      v.client,
		name:        name,
		temperature: temperature,
	}
}

func (v *Vertex) Close() error {
	return v.client.Close()
}

type vertexModel struct {
	client      *genai.Client
	name        string
	temperature float32
}

func (m *vertexModel) Generate(ctx context.Context, req Request) (string, error) {
	model := m.client.GenerativeModel(m.name)
	model.SetTemperature(m.temperature)

	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("generating content with %s: %w", m.name, err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}

	var sb strings.Builder

	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	return strings.TrimSpace(sb.String())
}
