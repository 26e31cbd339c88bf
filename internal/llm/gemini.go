package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiProvider executes completions against the Gemini API surface.
type geminiProvider struct{}

func (p *geminiProvider) complete(ctx context.Context, model string, req Request, apiKey string) (*Completion, error) {
	if apiKey == "" {
		return nil, &APIError{StatusCode: 401, Model: model, Body: "no Gemini API key resolved"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	gm.SetTemperature(float32(temperature))
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	gm.SetMaxOutputTokens(int32(maxTokens))

	// Gemini has no separate system role in this SDK surface; fold the
	// system message into the system instruction and send the rest as user
	// content.
	var userParts []string
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(msg.Content)}}
			continue
		}
		userParts = append(userParts, msg.Content)
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(strings.Join(userParts, "\n\n")))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &APIError{StatusCode: gerr.Code, Model: model, Body: gerr.Message}
		}
		return nil, fmt.Errorf("gemini call failed for %s: %w", model, err)
	}

	text, err := geminiResponseText(resp)
	if err != nil {
		return nil, fmt.Errorf("gemini response for %s: %w", model, err)
	}

	completion := &Completion{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		completion.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return completion, nil
}

// geminiResponseText extracts the concatenated text parts from a Gemini
// response.
func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
