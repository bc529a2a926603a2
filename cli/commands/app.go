package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petal-labs/oai/cli/config"
	"github.com/petal-labs/oai/cli/keystore"
	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/providers/openai"
)

// keystoreEntry is the keystore name the API key is stored under.
const keystoreEntry = "openai"

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// ClientFactory creates an API client from a resolved key and the CLI config.
type ClientFactory func(apiKey string, cfg *config.Config, log *zap.Logger) (*openai.Client, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	newClient   ClientFactory
	newKeystore KeystoreFactory
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	model      string
	apiKey     string
	jsonOutput bool
	verbose    bool
	cfg        *config.Config
	log        *zap.Logger
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithClientFactory injects an API client factory.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		newClient:   defaultClientFactory,
		newKeystore: keystore.NewKeystore,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "oai",
		Short: "oai - command-line client for the OpenAI API",
		Long: `oai talks to the OpenAI REST API from the command line.

Use oai to chat with models, create embeddings, images and transcriptions,
manage files, and store your API key in an encrypted keystore.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.oai/config.yaml)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. gpt-4o-mini)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key (overrides OPENAI_API_KEY and the keystore)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newChatCommand())
	root.AddCommand(a.newCompleteCommand())
	root.AddCommand(a.newEmbedCommand())
	root.AddCommand(a.newImagesCommand())
	root.AddCommand(a.newAudioCommand())
	root.AddCommand(a.newFilesCommand())
	root.AddCommand(a.newModelsCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx available to every subcommand.
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			// Flag and argument errors never reach a RunE.
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			err = exitWithCode(ExitValidation, err)
		}
	}
	_ = a.log.Sync()
	return err
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return a.fail(exitWithCode(ExitValidation, err))
	}
	a.cfg = cfg

	level, _ := cfg.Level()
	a.log = newLogger(a.stderr, a.verbose, level)
	return nil
}

// newLogger writes console logs at debug level when verbose, and JSON logs at
// the configured level otherwise.
func newLogger(w io.Writer, verbose bool, level zapcore.Level) *zap.Logger {
	if verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel))
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

// resolveAPIKey returns the --api-key flag, then OPENAI_API_KEY, then the
// keystore entry.
func (a *App) resolveAPIKey() (string, error) {
	if a.apiKey != "" {
		return a.apiKey, nil
	}
	if key := os.Getenv(openai.DefaultAPIKeyEnvVar); key != "" {
		return key, nil
	}

	ks, err := a.newKeystore()
	if err != nil {
		return "", fmt.Errorf("failed to open keystore: %w", err)
	}
	key, err := ks.Get(keystoreEntry)
	if err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return "", core.NewValidationError("no API key: use --api-key, set OPENAI_API_KEY, or run 'oai keys set openai'")
		}
		return "", fmt.Errorf("failed to read keystore: %w", err)
	}
	return key, nil
}

// client builds an API client and loads the configured context into it.
func (a *App) client() (*openai.Client, error) {
	key, err := a.resolveAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := a.newClient(key, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	if len(a.cfg.Context) > 0 {
		if err := client.AddContexts(a.cfg.Context); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// chatModel resolves the model for chat: flag, then config, then fallback.
func (a *App) chatModel(fallback string) string {
	if a.model != "" {
		return a.model
	}
	if a.cfg != nil && a.cfg.DefaultModel != "" {
		return a.cfg.DefaultModel
	}
	return fallback
}

// modelOr returns the --model flag or fallback. default_model names a chat
// model, so it does not apply to other endpoints.
func (a *App) modelOr(fallback string) string {
	if a.model != "" {
		return a.model
	}
	return fallback
}

func defaultClientFactory(apiKey string, cfg *config.Config, log *zap.Logger) (*openai.Client, error) {
	opts := []openai.Option{openai.WithLogger(log)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		opts = append(opts, openai.WithOrgID(cfg.Organization))
	}
	if cfg.Project != "" {
		opts = append(opts, openai.WithProjectID(cfg.Project))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openai.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries != nil {
		if *cfg.MaxRetries == 0 {
			opts = append(opts, openai.WithRetryPolicy(core.NoRetry()))
		} else {
			opts = append(opts, openai.WithRetryPolicy(core.NewRetryPolicy(core.RetryConfig{MaxRetries: *cfg.MaxRetries})))
		}
	}
	proxy, err := cfg.ProxyURL()
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		opts = append(opts, openai.WithProxy(proxy))
	}
	return openai.New(apiKey, opts...), nil
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute() error {
	return defaultApp.Execute()
}

// ExecuteContext runs the default app root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return defaultApp.ExecuteContext(ctx)
}
