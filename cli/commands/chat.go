package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/providers/openai"
)

const defaultChatModel = "gpt-4o-mini"

type chatOptions struct {
	prompt      string
	system      string
	contextFile string
	temperature float64
	maxTokens   int
	stream      bool
}

func (a *App) newChatCommand() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a chat completion request",
		Long: `Send a chat completion request.

Context entries from the config file and --context-file are sent ahead of
the prompt.

Examples:
  oai chat --prompt "Hello"
  oai chat --model gpt-4o --prompt "Hello" --stream
  oai chat --context-file history.json --prompt "And then?" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "user message (required)")
	cmd.Flags().StringVar(&opts.system, "system", "", "system message")
	cmd.Flags().StringVar(&opts.contextFile, "context-file", "", "JSON file with an array of {role, content} context entries")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 0, "temperature (0 = use default)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "max tokens (0 = use default)")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "stream output as it is generated")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (a *App) runChat(ctx context.Context, opts chatOptions) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}

	if opts.contextFile != "" {
		data, err := os.ReadFile(opts.contextFile)
		if err != nil {
			return a.fail(fmt.Errorf("failed to read context file: %w", err))
		}
		if err := client.LoadContextJSON(data); err != nil {
			return a.fail(err)
		}
	}

	req := &openai.ChatCompletionRequest{Model: a.chatModel(defaultChatModel)}
	if opts.system != "" {
		req.Messages = append(req.Messages, openai.ChatMessage{Role: "system", Content: opts.system})
	}
	req.Messages = append(req.Messages, openai.ChatMessage{Role: "user", Content: opts.prompt})
	if opts.temperature > 0 {
		req.Temperature = &opts.temperature
	}
	if opts.maxTokens > 0 {
		req.MaxTokens = &opts.maxTokens
	}

	if opts.stream {
		return a.streamChat(ctx, client, req)
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, resp)
	}
	fmt.Fprintln(a.stdout, resp.Content())
	a.logUsage(resp.Usage)
	return nil
}

func (a *App) streamChat(ctx context.Context, client *openai.Client, req *openai.ChatCompletionRequest) error {
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := client.StreamChatCompletion(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.Add(chunk)
		if a.jsonOutput {
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Index == 0 {
				fmt.Fprint(a.stdout, choice.Delta.Content)
			}
		}
	}
	if err := stream.Err(); err != nil {
		if !a.jsonOutput {
			fmt.Fprintln(a.stdout)
		}
		return a.fail(err)
	}

	resp, err := acc.Completion()
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, resp)
	}
	fmt.Fprintln(a.stdout)
	a.logUsage(resp.Usage)
	return nil
}
