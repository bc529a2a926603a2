package commands

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestKeysSetFromStdin(t *testing.T) {
	env := newTestEnv(t, nil, nil, "sk-proj-abcdefgh5678\n")
	delete(env.ks.keys, "openai")

	if err := env.run("keys", "set"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := env.ks.keys["openai"]; got != "sk-proj-abcdefgh5678" {
		t.Errorf("stored key = %q", got)
	}
	if strings.Contains(env.stdout.String(), "abcdefgh") {
		t.Errorf("stdout leaked the key: %q", env.stdout)
	}
	if !strings.Contains(env.stdout.String(), "sk-...5678") {
		t.Errorf("stdout = %q, want redacted hint", env.stdout)
	}
}

func TestKeysSetNamedEntry(t *testing.T) {
	env := newTestEnv(t, nil, nil, "sk-azure")
	if err := env.run("keys", "set", "azure"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if env.ks.keys["azure"] != "sk-azure" {
		t.Errorf("keys = %v", env.ks.keys)
	}
}

func TestKeysSetEmptyRejected(t *testing.T) {
	env := newTestEnv(t, nil, nil, "\n")
	err := env.run("keys", "set", "empty")
	if code := exitCode(t, err); code != ExitValidation {
		t.Errorf("exit code = %d, want %d", code, ExitValidation)
	}
	if _, ok := env.ks.keys["empty"]; ok {
		t.Error("empty key was stored")
	}
}

func TestKeysListNeverShowsValues(t *testing.T) {
	env := newTestEnv(t, nil, nil, "")
	if err := env.run("keys", "list"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := env.stdout.String()
	if !strings.Contains(out, "- openai") || strings.Contains(out, "sk-from-keystore") {
		t.Errorf("output = %q", out)
	}

	env = newTestEnv(t, nil, nil, "")
	if err := env.run("keys", "list", "--json"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	var got struct{ Keys []string }
	if err := json.Unmarshal(env.stdout.Bytes(), &got); err != nil || len(got.Keys) != 1 || got.Keys[0] != "openai" {
		t.Errorf("keys JSON = %s (err %v)", env.stdout, err)
	}
}

func TestKeysListEmpty(t *testing.T) {
	env := newTestEnv(t, nil, nil, "")
	delete(env.ks.keys, "openai")
	if err := env.run("keys", "list"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(env.stdout.String(), "No API keys stored.") {
		t.Errorf("output = %q", env.stdout)
	}
}

func TestKeysDelete(t *testing.T) {
	env := newTestEnv(t, nil, nil, "")
	if err := env.run("keys", "delete", "openai"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := env.ks.keys["openai"]; ok {
		t.Error("key still present after delete")
	}

	err := env.run("keys", "delete", "openai")
	if code := exitCode(t, err); code != ExitValidation {
		t.Errorf("second delete exit code = %d, want %d", code, ExitValidation)
	}
}
