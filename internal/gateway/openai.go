package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// systemPrompt keeps answers short and grounded in the image.
const systemPrompt = "You are a helpful voice assistant. Give short, direct answers, at most two sentences. When the question concerns the image, base your answer only on what is actually visible in it."

// Transcribe sends the recording to the speech-to-text model.
func (c *Client) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: audio is empty")
	}
	if format == "" {
		format = "wav"
	}

	start := time.Now()
	text, err := doWithRetry(ctx, c.logger, "transcribe", c.cfg.TranscribePolicy,
		func(ctx context.Context) (string, error) {
			resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
				Model:    c.cfg.TranscribeModel,
				FilePath: "recording." + format,
				Reader:   bytes.NewReader(audio),
			})
			if err != nil {
				return "", fmt.Errorf("create transcription: %w", err)
			}
			return resp.Text, nil
		})
	if err != nil {
		return "", err
	}

	c.logger.Info("transcription completed",
		zap.Int("audio_bytes", len(audio)),
		zap.Int("transcript_chars", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

// Infer asks the vision-capable chat model about the image.
func (c *Client) Infer(ctx context.Context, prompt string, imageJPEG []byte) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("infer: prompt is empty")
	}
	if len(imageJPEG) == 0 {
		return "", fmt.Errorf("infer: image is empty")
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG)

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	start := time.Now()
	answer, err := doWithRetry(ctx, c.logger, "infer", c.cfg.InferPolicy,
		func(ctx context.Context) (string, error) {
			resp, err := c.api.CreateChatCompletion(ctx, req)
			if err != nil {
				return "", fmt.Errorf("create chat completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return "", errNoChoices
			}
			return resp.Choices[0].Message.Content, nil
		})
	if err != nil {
		return "", err
	}

	c.logger.Info("inference completed",
		zap.String("model", c.cfg.ChatModel),
		zap.Int("answer_chars", len(answer)),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, nil
}

// Synthesize renders the answer as MP3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("synthesize: text is empty")
	}

	start := time.Now()
	audio, err := doWithRetry(ctx, c.logger, "synthesize", c.cfg.SynthPolicy,
		func(ctx context.Context) ([]byte, error) {
			resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
				Model:          openai.SpeechModel(c.cfg.SpeechModel),
				Input:          text,
				Voice:          openai.SpeechVoice(c.cfg.SpeechVoice),
				ResponseFormat: openai.SpeechResponseFormatMp3,
			})
			if err != nil {
				return nil, fmt.Errorf("create speech: %w", err)
			}
			defer resp.Close()

			data, err := io.ReadAll(resp)
			if err != nil {
				return nil, fmt.Errorf("read speech response: %w", err)
			}
			return data, nil
		})
	if err != nil {
		return nil, err
	}

	c.logger.Info("synthesis completed",
		zap.Int("text_chars", len(text)),
		zap.Int("audio_bytes", len(audio)),
		zap.Duration("duration", time.Since(start)),
	)
	return audio, nil
}
