package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// PromptService rewrites the catalog's storyboard composition prompt into a
// richer scene-by-scene instruction before submission. It is optional — when
// not configured the pipeline submits the catalog prompt verbatim, and any
// enhancement failure falls back to it as well.
type PromptService struct {
	client *openai.Client
}

func NewPromptService(apiKey string) *PromptService {
	return &PromptService{
		client: openai.NewClient(apiKey),
	}
}

const enhancerSystemPrompt = `You write image-generation instructions for a photo-memory video service. Given a style direction and the number of user photos, expand it into one concrete instruction for composing those photos into a storyboard of nine scenes arranged in a 3x3 grid.

Rules:
- Keep every person from the reference photos recognizable; never invent new people.
- Describe varied scene framing across the nine cells (wide, medium, close).
- Stay under 150 words. Output the instruction only, no preamble or lists.`

// EnhanceComposition returns an enriched storyboard composition prompt for
// the given style direction, or an error (callers treat failure as
// non-critical and keep the base prompt).
func (s *PromptService) EnhanceComposition(ctx context.Context, styleID, basePrompt string, photoCount int) (string, error) {
	userPrompt := fmt.Sprintf("Style: %s\nPhotos provided: %d\nStyle direction: %s", styleID, photoCount, basePrompt)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enhancerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("prompt enhancement failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("prompt enhancement returned no choices")
	}

	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	if enhanced == "" {
		return "", fmt.Errorf("prompt enhancement returned empty content")
	}

	log.Printf("[Prompt] Enhanced %s composition prompt (%d -> %d chars)", styleID, len(basePrompt), len(enhanced))
	return enhanced, nil
}
