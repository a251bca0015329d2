// Package pipeline consumes the finalized audio artifact: transcription via
// Whisper, enrichment via Claude, and persistence of the results. It begins
// strictly after phase has moved to processing and owns the remaining phase
// transitions, writing through the same single-writer session store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Transcriber converts audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// WhisperTranscriber transcribes audio through the OpenAI Whisper API.
type WhisperTranscriber struct {
	apiKey string
}

func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	return &WhisperTranscriber{apiKey: apiKey}
}

// Transcribe sends the audio payload to Whisper and returns the text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("API key required: set OPENAI_API_KEY or use --openai-api-key")
	}

	client := openai.NewClient(option.WithAPIKey(t.apiKey))

	params := openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModelWhisper1,
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return resp.Text, nil
}
