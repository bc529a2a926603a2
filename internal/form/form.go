// Package form builds multipart/form-data request bodies.
package form

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

// extensionTypes covers upload formats that mime.TypeByExtension does not
// know on every platform.
var extensionTypes = map[string]string{
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".webp":  "image/webp",
	".gif":   "image/gif",
	".mp3":   "audio/mpeg",
	".mpga":  "audio/mpeg",
	".mpeg":  "audio/mpeg",
	".m4a":   "audio/mp4",
	".mp4":   "audio/mp4",
	".wav":   "audio/wav",
	".webm":  "audio/webm",
	".ogg":   "audio/ogg",
	".flac":  "audio/flac",
	".jsonl": "application/jsonl",
	".json":  "application/json",
	".txt":   "text/plain",
	".pdf":   "application/pdf",
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Builder accumulates form fields and files. The first error is kept and
// reported by Encode, so calls can be chained.
type Builder struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

// New returns an empty Builder.
func New() *Builder {
	b := &Builder{}
	b.w = multipart.NewWriter(&b.buf)
	return b
}

// Field adds a text field.
func (b *Builder) Field(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.w.WriteField(name, value); err != nil {
		b.err = fmt.Errorf("failed to write field %s: %w", name, err)
	}
	return b
}

// FieldIf adds a text field unless value is empty.
func (b *Builder) FieldIf(name, value string) *Builder {
	if value == "" {
		return b
	}
	return b.Field(name, value)
}

// File adds a file part read fully from r. The part Content-Type comes from
// the filename extension, falling back to content sniffing.
func (b *Builder) File(name, filename string, r io.Reader) *Builder {
	if b.err != nil {
		return b
	}
	if r == nil {
		b.err = fmt.Errorf("no content for file field %s", name)
		return b
	}
	data, err := io.ReadAll(r)
	if err != nil {
		b.err = fmt.Errorf("failed to read file content for %s: %w", name, err)
		return b
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filepath.Base(filename))))
	h.Set("Content-Type", DetectContentType(filename, data))

	part, err := b.w.CreatePart(h)
	if err != nil {
		b.err = fmt.Errorf("failed to create form file: %w", err)
		return b
	}
	if _, err := part.Write(data); err != nil {
		b.err = fmt.Errorf("failed to copy file content: %w", err)
	}
	return b
}

// Encode closes the form and returns its body and Content-Type header value.
// The body is fully buffered so it can be sent more than once.
func (b *Builder) Encode() ([]byte, string, error) {
	if b.err != nil {
		return nil, "", b.err
	}
	if err := b.w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return b.buf.Bytes(), b.w.FormDataContentType(), nil
}

// DetectContentType picks a MIME type from the filename extension, then
// from the leading bytes of data.
func DetectContentType(filename string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
