package openai

import "io"

// Image response formats.
const (
	ImageFormatURL     = "url"
	ImageFormatB64JSON = "b64_json"
)

// ImageRequest is the body of POST /images/generations.
type ImageRequest struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model,omitempty"`
	N                 *int   `json:"n,omitempty"`
	Quality           string `json:"quality,omitempty"`
	ResponseFormat    string `json:"response_format,omitempty"`
	OutputFormat      string `json:"output_format,omitempty"`
	OutputCompression *int   `json:"output_compression,omitempty"`
	Background        string `json:"background,omitempty"`
	Size              string `json:"size,omitempty"`
	Style             string `json:"style,omitempty"`
	User              string `json:"user,omitempty"`
}

// ImageEditRequest is sent as multipart to POST /images/edits.
type ImageEditRequest struct {
	Image     io.Reader
	ImageName string
	// Mask is optional; transparent areas mark where Image is edited.
	Mask           io.Reader
	MaskName       string
	Prompt         string
	Model          string
	N              *int
	Size           string
	ResponseFormat string
	User           string
}

// ImageVariationRequest is sent as multipart to POST /images/variations.
type ImageVariationRequest struct {
	Image          io.Reader
	ImageName      string
	Model          string
	N              *int
	Size           string
	ResponseFormat string
	User           string
}

// ImageResponse lists the generated images.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
	Usage   *ImageUsage `json:"usage,omitempty"`
}

// ImageData is one image, given by URL or inline base64.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageUsage tracks token usage for image models that report it.
type ImageUsage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}
