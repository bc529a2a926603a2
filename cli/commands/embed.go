package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/providers/openai"
)

const defaultEmbeddingModel = "text-embedding-3-small"

func (a *App) newEmbedCommand() *cobra.Command {
	var (
		inputs     []string
		dimensions int
	)

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Create embeddings for one or more inputs",
		Long: `Create embedding vectors with POST /embeddings.

Examples:
  oai embed --input "hello world"
  oai embed --input first --input second --dimensions 256 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEmbed(cmd.Context(), inputs, dimensions)
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "text to embed (repeatable, required)")
	cmd.Flags().IntVar(&dimensions, "dimensions", 0, "output dimensions (0 = model default)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (a *App) runEmbed(ctx context.Context, inputs []string, dimensions int) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	req := &openai.EmbeddingRequest{Model: a.modelOr(defaultEmbeddingModel), Input: inputs}
	if dimensions > 0 {
		req.Dimensions = &dimensions
	}

	resp, err := client.CreateEmbeddings(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, resp)
	}

	for _, e := range resp.Data {
		preview := e.Embedding
		if len(preview) > 4 {
			preview = preview[:4]
		}
		fmt.Fprintf(a.stdout, "%d: %d dimensions %v\n", e.Index, len(e.Embedding), preview)
	}
	a.logUsage(&resp.Usage)
	return nil
}
