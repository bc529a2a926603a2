package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/providers/openai"
)

const (
	defaultTranscriptionModel = "whisper-1"
	defaultSpeechModel        = "gpt-4o-mini-tts"
	defaultVoice              = "alloy"
)

func (a *App) newAudioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Transcribe audio and synthesize speech",
	}
	cmd.AddCommand(a.newAudioTranscribeCommand())
	cmd.AddCommand(a.newAudioSpeechCommand())
	return cmd
}

func (a *App) newAudioTranscribeCommand() *cobra.Command {
	var file, language, format string

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe an audio file",
		Long: `Transcribe an audio file with POST /audio/transcriptions.

Examples:
  oai audio transcribe --file meeting.mp3
  oai audio transcribe --file talk.m4a --language de --response-format srt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranscribe(cmd.Context(), file, language, format)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "audio file (required)")
	cmd.Flags().StringVar(&language, "language", "", "ISO-639-1 language of the audio")
	cmd.Flags().StringVar(&format, "response-format", "", "json, text, srt, verbose_json or vtt")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *App) newAudioSpeechCommand() *cobra.Command {
	var input, voice, output string

	cmd := &cobra.Command{
		Use:   "speech",
		Short: "Synthesize speech from text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSpeech(cmd.Context(), input, voice, output)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "text to speak (required)")
	cmd.Flags().StringVar(&voice, "voice", defaultVoice, "voice name")
	cmd.Flags().StringVar(&output, "output", "speech.mp3", "output audio file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (a *App) runTranscribe(ctx context.Context, path, language, format string) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	f, err := os.Open(path)
	if err != nil {
		return a.fail(fmt.Errorf("failed to open audio file: %w", err))
	}
	defer f.Close()

	resp, err := client.CreateTranscription(ctx, &openai.TranscriptionRequest{
		File:           f,
		Filename:       filepath.Base(path),
		Model:          a.modelOr(defaultTranscriptionModel),
		Language:       language,
		ResponseFormat: format,
	})
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, resp)
	}
	fmt.Fprintln(a.stdout, resp.Text)
	return nil
}

func (a *App) runSpeech(ctx context.Context, input, voice, output string) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	audio, err := client.CreateSpeech(ctx, &openai.SpeechRequest{
		Model: a.modelOr(defaultSpeechModel),
		Input: input,
		Voice: voice,
	})
	if err != nil {
		return a.fail(err)
	}
	if err := os.WriteFile(output, audio, 0o644); err != nil {
		return a.fail(fmt.Errorf("failed to write audio: %w", err))
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"file": output, "bytes": len(audio)})
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d bytes)\n", output, len(audio))
	return nil
}
