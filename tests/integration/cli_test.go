//go:build integration

package integration

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCLIChat(t *testing.T) {
	key := requireAPIKey(t)
	r := runCLI(t, []string{"OPENAI_API_KEY=" + key}, "", "chat", "--prompt", "Say 'hello' and nothing else.")
	if r.ExitCode != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", r.ExitCode, r.Stderr)
	}
	if strings.TrimSpace(r.Stdout) == "" {
		t.Error("stdout is empty")
	}
}

func TestCLIChatStreamJSON(t *testing.T) {
	key := requireAPIKey(t)
	r := runCLI(t, []string{"OPENAI_API_KEY=" + key}, "", "--json", "chat", "--prompt", "Count from 1 to 3.", "--stream")
	if r.ExitCode != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", r.ExitCode, r.Stderr)
	}
	var out struct {
		ID      string `json:"id"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(r.Stdout), &out); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, r.Stdout)
	}
	if out.ID == "" || len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		t.Errorf("completion = %+v", out)
	}
}

func TestCLIKeystoreRoundTrip(t *testing.T) {
	key := requireAPIKey(t)
	home := t.TempDir()
	env := []string{"HOME=" + home}

	if r := runCLI(t, env, key+"\n", "keys", "set", "openai"); r.ExitCode != 0 {
		t.Fatalf("keys set exit code = %d\nstderr: %s", r.ExitCode, r.Stderr)
	}
	r := runCLI(t, env, "", "keys", "list")
	if !strings.Contains(r.Stdout, "openai") || strings.Contains(r.Stdout, key) {
		t.Errorf("keys list output = %q", r.Stdout)
	}
	if r := runCLI(t, env, "", "models", "get", chatModel); r.ExitCode != 0 {
		t.Errorf("models get with stored key exit code = %d\nstderr: %s", r.ExitCode, r.Stderr)
	}
}

func TestCLIInvalidKeyExitCode(t *testing.T) {
	requireAPIKey(t)
	r := runCLI(t, []string{"OPENAI_API_KEY=sk-invalid"}, "", "--json", "models", "list")
	if r.ExitCode != 2 {
		t.Fatalf("exit code = %d, want 2\nstderr: %s", r.ExitCode, r.Stderr)
	}
	var out struct {
		Error struct {
			Type   string `json:"type"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(r.Stderr), &out); err != nil {
		t.Fatalf("stderr is not JSON: %v\n%s", err, r.Stderr)
	}
	if out.Error.Type != "authentication" || out.Error.Status != 401 {
		t.Errorf("error = %+v", out.Error)
	}
}

func TestCLIMissingKeyExitCode(t *testing.T) {
	r := runCLI(t, nil, "", "chat", "--prompt", "hi")
	if r.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1\nstderr: %s", r.ExitCode, r.Stderr)
	}
}
