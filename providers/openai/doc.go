// Package openai is a client for the OpenAI REST API.
//
// A Client carries a conversation context: entries added with AddContext,
// AddContexts or LoadContextJSON are sent ahead of the caller's messages on
// every chat completion. Entries are validated on the way in, so a bad role
// never reaches the network.
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"))
//	client.AddContext(core.ContextEntry{Role: core.RoleSystem, Content: "Answer in French."})
//
//	resp, err := client.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []openai.ChatMessage{{Role: "user", Content: "Hello"}},
//	})
//
// Streaming calls return a *core.Stream that decodes server-sent events
// incrementally:
//
//	stream, err := client.StreamChatCompletion(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Current().Choices[0].Delta.Content)
//	}
//	return stream.Err()
//
// Every failure is a *core.Error; use errors.Is with core.ErrValidation,
// core.ErrAuthentication, core.ErrRateLimit, core.ErrAPI or core.ErrNetwork
// to branch on its kind.
package openai
