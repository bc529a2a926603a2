//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/providers/openai"
)

const (
	chatModel      = "gpt-4o-mini"
	embeddingModel = "text-embedding-3-small"
)

// isCI reports whether a common CI environment variable is set.
func isCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// requireAPIKey returns OPENAI_API_KEY. Without it the test is skipped, or
// failed in CI unless OAI_SKIP_INTEGRATION is set.
func requireAPIKey(t *testing.T) string {
	t.Helper()
	key := os.Getenv(openai.DefaultAPIKeyEnvVar)
	if key != "" {
		return key
	}
	if isCI() && os.Getenv("OAI_SKIP_INTEGRATION") == "" {
		t.Fatalf("%s not set (CI environment detected; set OAI_SKIP_INTEGRATION=1 to skip)", openai.DefaultAPIKeyEnvVar)
	}
	t.Skipf("%s not set", openai.DefaultAPIKeyEnvVar)
	return ""
}

func newClient(t *testing.T, opts ...openai.Option) *openai.Client {
	t.Helper()
	key := requireAPIKey(t)
	opts = append([]openai.Option{openai.WithRetryPolicy(core.NewRetryPolicy(core.RetryConfig{MaxRetries: 3}))}, opts...)
	return openai.New(key, opts...)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type cliResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runCLI runs the prebuilt binary with an isolated HOME so no local config
// or keystore leaks into the test.
func runCLI(t *testing.T, env []string, stdin string, args ...string) cliResult {
	t.Helper()
	if cliBinary == "" {
		t.Fatal("CLI binary not built - TestMain may not have run")
	}

	cmd := exec.Command(cliBinary, args...)
	cmd.Env = append([]string{
		"HOME=" + t.TempDir(),
		"PATH=" + os.Getenv("PATH"),
		"OAI_KEYSTORE_PASSPHRASE=integration",
	}, env...)
	cmd.Stdin = bytes.NewBufferString(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("Failed to run CLI: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return cliResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}
