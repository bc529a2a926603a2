package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/form"
	"github.com/petal-labs/oai/internal/normalize"
	"github.com/petal-labs/oai/internal/transport"
)

const (
	transcriptionsPath = "/audio/transcriptions"
	translationsPath   = "/audio/translations"
	speechPath         = "/audio/speech"
)

// CreateTranscription converts speech in an audio file to text.
func (c *Client) CreateTranscription(ctx context.Context, req *TranscriptionRequest) (*Transcription, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if err := validateAudio(req.Model, req.File, req.Filename); err != nil {
		return nil, err
	}

	b := form.New().
		File("file", req.Filename, req.File).
		Field("model", req.Model).
		FieldIf("language", req.Language).
		FieldIf("prompt", req.Prompt).
		FieldIf("response_format", req.ResponseFormat)
	if req.Temperature != nil {
		b.Field("temperature", strconv.FormatFloat(*req.Temperature, 'f', -1, 64))
	}
	for _, g := range req.TimestampGranularities {
		b.Field("timestamp_granularities[]", g)
	}

	return c.doAudio(ctx, operation{name: "audio.transcriptions", model: req.Model}, transcriptionsPath, b, req.ResponseFormat)
}

// CreateTranslation translates speech in an audio file into English text.
func (c *Client) CreateTranslation(ctx context.Context, req *TranslationRequest) (*Transcription, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if err := validateAudio(req.Model, req.File, req.Filename); err != nil {
		return nil, err
	}

	b := form.New().
		File("file", req.Filename, req.File).
		Field("model", req.Model).
		FieldIf("prompt", req.Prompt).
		FieldIf("response_format", req.ResponseFormat)
	if req.Temperature != nil {
		b.Field("temperature", strconv.FormatFloat(*req.Temperature, 'f', -1, 64))
	}

	return c.doAudio(ctx, operation{name: "audio.translations", model: req.Model}, translationsPath, b, req.ResponseFormat)
}

// CreateSpeech synthesizes audio from text and returns the encoded audio.
func (c *Client) CreateSpeech(ctx context.Context, req *SpeechRequest) ([]byte, error) {
	if req == nil {
		return nil, core.NewValidationError("request is required")
	}
	if req.Model == "" {
		return nil, core.NewValidationError("model is required")
	}
	if req.Input == "" {
		return nil, core.NewValidationError("input is required")
	}
	if req.Voice == "" {
		return nil, core.NewValidationError("voice is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, normalize.Encode(err)
	}
	return c.doRaw(ctx, operation{name: "audio.speech", model: req.Model}, &transport.Request{
		Method: http.MethodPost,
		Path:   speechPath,
		Body:   body,
		Accept: "*/*",
	})
}

// doAudio posts an audio form. Plain-text response formats are returned
// verbatim in Text.
func (c *Client) doAudio(ctx context.Context, op operation, path string, b *form.Builder, format string) (*Transcription, error) {
	switch format {
	case AudioFormatText, AudioFormatSRT, AudioFormatVTT:
	default:
		var resp Transcription
		if err := c.postForm(ctx, op, path, b, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}

	body, contentType, err := b.Encode()
	if err != nil {
		return nil, normalize.Encode(err)
	}
	text, err := c.doRaw(ctx, op, &transport.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		Accept:      "text/plain",
	})
	if err != nil {
		return nil, err
	}
	return &Transcription{Text: string(text)}, nil
}

func validateAudio(model string, file io.Reader, filename string) error {
	if model == "" {
		return core.NewValidationError("model is required")
	}
	if file == nil {
		return core.NewValidationError("file is required")
	}
	if filename == "" {
		return core.NewValidationError("filename is required")
	}
	return nil
}
