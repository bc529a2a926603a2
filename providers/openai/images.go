package openai

import (
	"context"
	"strconv"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/form"
)

const (
	imageGenerationsPath = "/images/generations"
	imageEditsPath       = "/images/edits"
	imageVariationsPath  = "/images/variations"
)

// GenerateImage creates images from a text prompt.
func (c *Client) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	if req == nil || req.Prompt == "" {
		return nil, core.NewValidationError("prompt is required")
	}

	var resp ImageResponse
	if err := c.postJSON(ctx, operation{name: "images.generations", model: req.Model}, imageGenerationsPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EditImage edits an image according to a prompt.
func (c *Client) EditImage(ctx context.Context, req *ImageEditRequest) (*ImageResponse, error) {
	if req == nil || req.Prompt == "" {
		return nil, core.NewValidationError("prompt is required")
	}
	if req.Image == nil {
		return nil, core.NewValidationError("image is required")
	}

	b := form.New().
		File("image", defaultName(req.ImageName, "image.png"), req.Image).
		Field("prompt", req.Prompt).
		FieldIf("model", req.Model).
		FieldIf("size", req.Size).
		FieldIf("response_format", req.ResponseFormat).
		FieldIf("user", req.User)
	if req.Mask != nil {
		b.File("mask", defaultName(req.MaskName, "mask.png"), req.Mask)
	}
	if req.N != nil {
		b.Field("n", strconv.Itoa(*req.N))
	}

	var resp ImageResponse
	if err := c.postForm(ctx, operation{name: "images.edits", model: req.Model}, imageEditsPath, b, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateImageVariation creates variations of an image.
func (c *Client) CreateImageVariation(ctx context.Context, req *ImageVariationRequest) (*ImageResponse, error) {
	if req == nil || req.Image == nil {
		return nil, core.NewValidationError("image is required")
	}

	b := form.New().
		File("image", defaultName(req.ImageName, "image.png"), req.Image).
		FieldIf("model", req.Model).
		FieldIf("size", req.Size).
		FieldIf("response_format", req.ResponseFormat).
		FieldIf("user", req.User)
	if req.N != nil {
		b.Field("n", strconv.Itoa(*req.N))
	}

	var resp ImageResponse
	if err := c.postForm(ctx, operation{name: "images.variations", model: req.Model}, imageVariationsPath, b, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func defaultName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
