package openai

import "io"

// Transcription response formats. Only json and verbose_json are JSON; the
// others return plain text that lands in Transcription.Text.
const (
	AudioFormatJSON        = "json"
	AudioFormatVerboseJSON = "verbose_json"
	AudioFormatText        = "text"
	AudioFormatSRT         = "srt"
	AudioFormatVTT         = "vtt"
)

// TranscriptionRequest is sent as multipart to POST /audio/transcriptions.
type TranscriptionRequest struct {
	File                   io.Reader
	Filename               string
	Model                  string
	Language               string
	Prompt                 string
	ResponseFormat         string
	Temperature            *float64
	TimestampGranularities []string
}

// TranslationRequest is sent as multipart to POST /audio/translations. The
// output is always English.
type TranslationRequest struct {
	File           io.Reader
	Filename       string
	Model          string
	Prompt         string
	ResponseFormat string
	Temperature    *float64
}

// Transcription is the text recognized in an audio file.
type Transcription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
	Words    []TranscriptionWord    `json:"words,omitempty"`
}

// TranscriptionSegment is a timed span of a verbose transcription.
type TranscriptionSegment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Temperature      float64 `json:"temperature,omitempty"`
	AvgLogprob       float64 `json:"avg_logprob,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty"`
}

// TranscriptionWord is a timed word, present with word granularity.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpeechRequest is the body of POST /audio/speech.
type SpeechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	Instructions   string   `json:"instructions,omitempty"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
}
