package form

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
)

func TestBuilderEncode(t *testing.T) {
	body, contentType, err := New().
		Field("model", "whisper-1").
		FieldIf("language", "").
		FieldIf("prompt", "names: Ana").
		File("file", "/tmp/dir/clip.mp3", strings.NewReader("ID3-audio")).
		Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q, err = %v", contentType, err)
	}

	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	fields := map[string]string{}
	var fileName, fileType, fileData string
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			fileName = part.FileName()
			fileType = part.Header.Get("Content-Type")
			fileData = string(data)
			continue
		}
		fields[part.FormName()] = string(data)
	}

	if fields["model"] != "whisper-1" || fields["prompt"] != "names: Ana" {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["language"]; ok {
		t.Error("FieldIf wrote an empty field")
	}
	if fileName != "clip.mp3" {
		t.Errorf("filename = %q, want clip.mp3", fileName)
	}
	if fileType != "audio/mpeg" {
		t.Errorf("file Content-Type = %q, want audio/mpeg", fileType)
	}
	if fileData != "ID3-audio" {
		t.Errorf("file data = %q", fileData)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }

func TestBuilderKeepsFirstError(t *testing.T) {
	_, _, err := New().
		File("file", "a.png", failingReader{}).
		Field("model", "dall-e-2").
		Encode()
	if err == nil || !strings.Contains(err.Error(), "disk error") {
		t.Errorf("Encode() error = %v, want read failure", err)
	}

	_, _, err = New().File("file", "a.png", nil).Encode()
	if err == nil {
		t.Error("Encode() with nil reader error = nil")
	}
}

func TestDetectContentType(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	tests := []struct {
		filename string
		data     []byte
		want     string
	}{
		{"image.PNG", nil, "image/png"},
		{"photo.jpeg", nil, "image/jpeg"},
		{"speech.wav", nil, "audio/wav"},
		{"train.jsonl", nil, "application/jsonl"},
		{"noext", png, "image/png"},
		{"noext", nil, "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := DetectContentType(tt.filename, tt.data); got != tt.want {
			t.Errorf("DetectContentType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
