package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/providers/openai"
)

const defaultCompletionModel = "gpt-3.5-turbo-instruct"

type completeOptions struct {
	prompt    string
	maxTokens int
	stream    bool
}

func (a *App) newCompleteCommand() *cobra.Command {
	var opts completeOptions

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Send a legacy text completion request",
		Long: `Send a text completion request to POST /completions.

Examples:
  oai complete --prompt "Once upon a time"
  oai complete --prompt "def fib(n):" --max-tokens 64 --stream`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runComplete(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "prompt text (required)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "max tokens (0 = use default)")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "stream output as it is generated")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (a *App) runComplete(ctx context.Context, opts completeOptions) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	req := &openai.CompletionRequest{Model: a.modelOr(defaultCompletionModel), Prompt: opts.prompt}
	if opts.maxTokens > 0 {
		req.MaxTokens = &opts.maxTokens
	}

	if !opts.stream {
		resp, err := client.CreateCompletion(ctx, req)
		if err != nil {
			return a.fail(err)
		}
		if a.jsonOutput {
			return writeJSON(a.stdout, resp)
		}
		fmt.Fprintln(a.stdout, resp.Text())
		a.logUsage(resp.Usage)
		return nil
	}

	stream, err := client.StreamCompletion(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	defer stream.Close()

	var chunks []openai.CompletionChunk
	for chunk, err := range stream.All() {
		if err != nil {
			return a.fail(err)
		}
		if a.jsonOutput {
			chunks = append(chunks, chunk)
			continue
		}
		fmt.Fprint(a.stdout, chunk.Text())
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, chunks)
	}
	fmt.Fprintln(a.stdout)
	return nil
}
