package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/providers/openai"
)

const defaultImageModel = "dall-e-3"

type imageOptions struct {
	prompt  string
	image   string
	size    string
	quality string
	n       int
	output  string
}

func (a *App) newImagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate and edit images",
	}
	cmd.AddCommand(a.newImagesGenerateCommand())
	cmd.AddCommand(a.newImagesEditCommand())
	return cmd
}

func (a *App) newImagesGenerateCommand() *cobra.Command {
	var opts imageOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an image from a prompt",
		Long: `Generate images with POST /images/generations.

With --output the first image is requested as base64 and written to the
given file; otherwise image URLs are printed.

Examples:
  oai images generate --prompt "a lighthouse at dusk"
  oai images generate --prompt "a red fox" --size 1024x1024 --output fox.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImagesGenerate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "image description (required)")
	cmd.Flags().StringVar(&opts.size, "size", "", "image size, e.g. 1024x1024")
	cmd.Flags().StringVar(&opts.quality, "quality", "", "image quality, e.g. standard or hd")
	cmd.Flags().IntVar(&opts.n, "n", 0, "number of images (0 = model default)")
	cmd.Flags().StringVar(&opts.output, "output", "", "write the first image to this file")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (a *App) newImagesEditCommand() *cobra.Command {
	var opts imageOptions

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit an image according to a prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImagesEdit(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "PNG image to edit (required)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "description of the edit (required)")
	cmd.Flags().StringVar(&opts.size, "size", "", "image size, e.g. 1024x1024")
	cmd.Flags().StringVar(&opts.output, "output", "", "write the first image to this file")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (a *App) runImagesGenerate(ctx context.Context, opts imageOptions) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	req := &openai.ImageRequest{
		Prompt:  opts.prompt,
		Model:   a.modelOr(defaultImageModel),
		Size:    opts.size,
		Quality: opts.quality,
	}
	if opts.n > 0 {
		req.N = &opts.n
	}
	if opts.output != "" {
		req.ResponseFormat = openai.ImageFormatB64JSON
	}

	resp, err := client.GenerateImage(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	return a.printImages(resp, opts.output)
}

func (a *App) runImagesEdit(ctx context.Context, opts imageOptions) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	f, err := os.Open(opts.image)
	if err != nil {
		return a.fail(fmt.Errorf("failed to open image: %w", err))
	}
	defer f.Close()

	req := &openai.ImageEditRequest{
		Image:     f,
		ImageName: filepath.Base(opts.image),
		Prompt:    opts.prompt,
		Model:     a.model,
		Size:      opts.size,
	}
	if opts.output != "" {
		req.ResponseFormat = openai.ImageFormatB64JSON
	}

	resp, err := client.EditImage(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	return a.printImages(resp, opts.output)
}

func (a *App) printImages(resp *openai.ImageResponse, output string) error {
	if output != "" {
		if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
			return a.fail(core.NewGenericError(fmt.Errorf("response contained no image data")))
		}
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return a.fail(core.NewGenericError(fmt.Errorf("decode image: %w", err)))
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return a.fail(fmt.Errorf("failed to write image: %w", err))
		}
		if !a.jsonOutput {
			fmt.Fprintf(a.stdout, "wrote %s (%d bytes)\n", output, len(data))
			return nil
		}
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, resp)
	}
	for _, img := range resp.Data {
		if img.URL != "" {
			fmt.Fprintln(a.stdout, img.URL)
		}
		if img.RevisedPrompt != "" {
			fmt.Fprintf(a.stdout, "  revised prompt: %s\n", img.RevisedPrompt)
		}
	}
	return nil
}
