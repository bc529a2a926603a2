package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/oai/cli/keystore"
	"github.com/petal-labs/oai/core"
)

func (a *App) newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage API keys in the encrypted keystore (~/.oai/keys.enc).

The key stored under "openai" is used when neither --api-key nor
OPENAI_API_KEY is set. Set OAI_KEYSTORE_PASSPHRASE to encrypt the keystore
with a passphrase instead of machine-derived material.`,
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "set [name]",
		Short: "Store an API key (default name: openai)",
		Long:  `Store an API key. The key is read from the terminal without echo, or from stdin when piped.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runKeysSet,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		Long:  `List stored key names. Key values are never shown.`,
		Args:  cobra.NoArgs,
		RunE:  a.runKeysList,
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runKeysDelete,
	})

	return keysCmd
}

func (a *App) runKeysSet(cmd *cobra.Command, args []string) error {
	name := keystoreEntry
	if len(args) == 1 {
		name = args[0]
	}

	fmt.Fprintf(a.stderr, "Enter API key for %s: ", name)
	apiKey, err := a.readSecret()
	if err != nil {
		return a.fail(fmt.Errorf("failed to read key: %w", err))
	}
	if apiKey == "" {
		return a.fail(core.NewValidationError("API key cannot be empty"))
	}

	ks, err := a.newKeystore()
	if err != nil {
		return a.fail(fmt.Errorf("failed to open keystore: %w", err))
	}
	if err := ks.Set(name, apiKey); err != nil {
		return a.fail(fmt.Errorf("failed to store key: %w", err))
	}

	fmt.Fprintf(a.stdout, "API key for %s stored (%s).\n", name, core.NewSecret(apiKey).Hint())
	return nil
}

// readSecret reads one line from stdin, without echo when stdin is a terminal.
func (a *App) readSecret() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) runKeysList(cmd *cobra.Command, args []string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return a.fail(fmt.Errorf("failed to open keystore: %w", err))
	}
	names, err := ks.List()
	if err != nil {
		return a.fail(fmt.Errorf("failed to list keys: %w", err))
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"keys": names})
	}
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}
	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}
	return nil
}

func (a *App) runKeysDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	ks, err := a.newKeystore()
	if err != nil {
		return a.fail(fmt.Errorf("failed to open keystore: %w", err))
	}
	if err := ks.Delete(name); err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return a.fail(core.NewValidationError("no key stored for " + name))
		}
		return a.fail(fmt.Errorf("failed to delete key: %w", err))
	}

	fmt.Fprintf(a.stdout, "API key for %s deleted.\n", name)
	return nil
}
