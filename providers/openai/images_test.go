package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/petal-labs/oai/core"
)

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		var req ImageRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "a red fox" || req.Size != "1024x1024" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"created":1700000000,"data":[{"url":"https://img.example/fox.png","revised_prompt":"a red fox in snow"}]}`))
	})

	resp, err := c.GenerateImage(context.Background(), &ImageRequest{Prompt: "a red fox", Model: "dall-e-3", Size: "1024x1024"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].URL != "https://img.example/fox.png" || resp.Data[0].RevisedPrompt == "" {
		t.Errorf("Data = %+v", resp.Data)
	}
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	c := New("test-key")
	if _, err := c.GenerateImage(context.Background(), &ImageRequest{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestEditImageMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if r.FormValue("prompt") != "add a hat" || r.FormValue("n") != "2" || r.FormValue("model") != "gpt-image-1" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile(image) error = %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "cat.png" || string(data) != "PNGDATA" {
			t.Errorf("image = %q (%q)", header.Filename, data)
		}
		if header.Header.Get("Content-Type") != "image/png" {
			t.Errorf("image Content-Type = %q", header.Header.Get("Content-Type"))
		}
		if _, mask, err := r.FormFile("mask"); err != nil || mask.Filename != "mask.png" {
			t.Errorf("mask = %v, %v", mask, err)
		}

		w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8="},{"b64_json":"d29ybGQ="}]}`))
	})

	n := 2
	resp, err := c.EditImage(context.Background(), &ImageEditRequest{
		Image:     strings.NewReader("PNGDATA"),
		ImageName: "cat.png",
		Mask:      strings.NewReader("MASK"),
		Prompt:    "add a hat",
		Model:     "gpt-image-1",
		N:         &n,
	})
	if err != nil {
		t.Fatalf("EditImage() error = %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].B64JSON != "aGVsbG8=" {
		t.Errorf("Data = %+v", resp.Data)
	}
}

func TestEditImageValidation(t *testing.T) {
	c := New("test-key")
	if _, err := c.EditImage(context.Background(), &ImageEditRequest{Prompt: "x"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing image: error = %v", err)
	}
	if _, err := c.EditImage(context.Background(), &ImageEditRequest{Image: strings.NewReader("x")}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("missing prompt: error = %v", err)
	}
}

func TestCreateImageVariation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/variations" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		r.ParseMultipartForm(10 << 20)
		if _, header, err := r.FormFile("image"); err != nil || header.Filename != "image.png" {
			t.Errorf("image = %v, %v", header, err)
		}
		if r.FormValue("size") != "256x256" {
			t.Errorf("size = %q", r.FormValue("size"))
		}
		w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example/v.png"}]}`))
	})

	resp, err := c.CreateImageVariation(context.Background(), &ImageVariationRequest{
		Image: strings.NewReader("PNG"),
		Size:  "256x256",
	})
	if err != nil {
		t.Fatalf("CreateImageVariation() error = %v", err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("Data = %+v", resp.Data)
	}
}
