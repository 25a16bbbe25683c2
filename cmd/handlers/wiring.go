package handlers

import (
	"context"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"ragforge/internal/completion"
	"ragforge/internal/config"
	"ragforge/internal/embedding"
	"ragforge/internal/graphstore"
	"ragforge/internal/ragerr"
	"ragforge/internal/tools"
)

// loadConfigFromFlags reads the --config flag set on the root command
// and loads the declarative config file, per §6.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// deps bundles the collaborators every subcommand needs, built once from
// the loaded config the way the teacher's handlers build a db+vectorStore
// pair inline per command — condensed here into one constructor since
// every ragforge subcommand needs the same set.
type deps struct {
	cfg       *config.Config
	store     graphstore.Store
	embedder  embedding.Provider
	completer completion.Provider
	tools     *tools.Registry
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dims := embedding.IndexDimensions{}
	for _, e := range cfg.Entities {
		for _, vi := range e.VectorIndexes {
			dims[vi.Name] = vi.Dimension
		}
	}

	var embedder embedding.Provider
	var completer completion.Provider
	if cfg.Providers.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Providers.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, ragerr.New(ragerr.GenProviderDown, "gemini.newclient", err)
		}
		model := cfg.Embeddings.Defaults.Model
		embedder = embedding.NewGeminiProvider(client, model, dims)
		completer = completion.NewGeminiProvider(client, completion.Options{})
	} else if cfg.Providers.OpenAIAPIKey != "" {
		completer = completion.NewOpenAIProvider(cfg.Providers.OpenAIAPIKey, completion.Options{})
	}

	var logger *tools.CallLogger
	if cfg.Agent.ToolLogging {
		l, err := tools.NewCallLogger("")
		if err != nil {
			return nil, err
		}
		logger = l
	}
	registry := tools.NewRegistry(logger)
	indexName := firstIndexName(cfg)
	if embedder != nil {
		registry.Register(tools.NewGraphQueryTool(store, embedder, indexName))
	}
	registry.Register(tools.NewFileReadTool("."))
	registry.Register(tools.NewWebFetchTool())
	registry.Register(tools.NewProjectOpTool())

	return &deps{cfg: cfg, store: store, embedder: embedder, completer: completer, tools: registry}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (graphstore.Store, error) {
	dsn := cfg.GraphStore.DSN()
	if dsn == "" {
		return graphstore.NewMemoryStore(), nil
	}
	return graphstore.NewPostgresStore(ctx, dsn)
}

func firstIndexName(cfg *config.Config) string {
	for _, e := range cfg.Entities {
		for _, vi := range e.VectorIndexes {
			return vi.Name
		}
	}
	return ""
}

// ExitCode maps a core error kind to the §6 exit-code contract: 0
// success, 1 user/config error, 2 provider unavailable, 3 store
// unavailable.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case ragerr.Is(err, ragerr.ConfigInvalid):
		return 1
	case ragerr.Is(err, ragerr.EmbedProviderDown), ragerr.Is(err, ragerr.GenProviderDown):
		return 2
	case ragerr.Is(err, ragerr.StoreUnavailable):
		return 3
	default:
		return 1
	}
}
