//go:build integration

// Package integration runs the client and the oai CLI against the live API.
package integration

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// cliBinary is built once in TestMain and shared by the CLI tests.
var cliBinary string

func TestMain(m *testing.M) {
	projectRoot := findProjectRoot()
	if projectRoot == "" {
		log.Fatal("Could not find project root (go.mod)")
	}

	tmpDir, err := os.MkdirTemp("", "oai-integration-test")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	cliBinary = filepath.Join(tmpDir, "oai-test")
	cmd := exec.Command("go", "build", "-o", cliBinary, "./cli/cmd/oai")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Fatalf("Failed to build CLI: %v\n%s", err, output)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// findProjectRoot walks up from the working directory to the nearest go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
