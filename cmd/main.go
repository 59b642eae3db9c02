package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"insurance-rag/internal/catalog"
	"insurance-rag/internal/config"
	"insurance-rag/internal/embedding"
	"insurance-rag/internal/extract"
	"insurance-rag/internal/indexer"
	"insurance-rag/internal/llmservice"
	"insurance-rag/internal/models"
	"insurance-rag/internal/narrator"
	"insurance-rag/internal/recommender"
	"insurance-rag/internal/retriever"
	"insurance-rag/internal/store"
	"insurance-rag/internal/store/chromemstore"
	"insurance-rag/internal/store/pgstore"

	"gopkg.in/yaml.v3"
)

const (
	configFilePath = "./configs/config.yaml"
	collectionName = "insurance_embeddings"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	reindex := flag.Bool("reindex", false, "Re-index all products and documents")
	productID := flag.Int64("index-product", 0, "Re-index a single product by id")
	documentID := flag.Int64("index-document", 0, "Re-index a single document by id")
	query := flag.String("recommend", "", "Recommendation query")
	search := flag.String("search", "", "Similarity search query")
	needsFile := flag.String("needs", "", "Path to a YAML file with customer needs")
	limit := flag.Int("limit", 0, "Maximum results")
	sessionID := flag.Int64("session", 0, "Voice session id to merge needs from")
	local := flag.Bool("local", false, "Use the local chromem store instead of Postgres")
	initSchema := flag.Bool("init", false, "Create database tables and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()
	app, err := buildApp(ctx, cfg, *local)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building application")
	}
	defer app.close()

	switch {
	case *initSchema:
		runInit(ctx, app)
	case *reindex:
		runReindex(ctx, app)
	case *productID != 0:
		if err := app.indexer.IndexProduct(ctx, *productID); err != nil {
			log.Fatal().Err(err).Msg("Error indexing product")
		}
	case *documentID != 0:
		if err := app.indexer.IndexDocument(ctx, *documentID); err != nil {
			log.Fatal().Err(err).Msg("Error indexing document")
		}
	case *query != "":
		runRecommend(ctx, app, *query, *needsFile, *limit, *sessionID)
	case *search != "":
		runSearch(ctx, app, *search, *limit)
	default:
		log.Fatal().Msg("Please provide one of -reindex, -index-product, -index-document, -recommend or -search")
	}
}

type app struct {
	cfg         *config.Config
	repo        *catalog.Repo
	vectorStore store.VectorStore
	indexer     *indexer.Indexer
	recommender *recommender.Recommender
	pg          *pgstore.Store
	close       func()
}

func buildApp(ctx context.Context, cfg *config.Config, local bool) (*app, error) {
	sqldb := pgstore.ConnectDB(&cfg.Database)
	db := pgstore.NewDB(sqldb, cfg.Database.Debug)
	repo := catalog.NewRepo(db)

	var vs store.VectorStore
	var pg *pgstore.Store
	if local {
		cs, err := chromemstore.New(cfg.RAG.ChromemPath, collectionName, cfg.RAG.VectorSize)
		if err != nil {
			return nil, err
		}
		vs = cs
	} else {
		pg = pgstore.New(db, cfg.RAG.VectorSize)
		vs = pg
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	ix := indexer.New(repo, embedder, vs, cfg.RAG.ChunkSize,
		indexer.WithExtractor(extract.New()),
		indexer.WithParallelism(cfg.RAG.Parallelism),
	)

	rtr := retriever.New(embedder, vs, cfg.RAG.Overfetch)
	nar := narrator.New(llmservice.NewClient(&cfg.ChatLLM))
	rec := recommender.New(rtr, nar, repo, repo, embedder, vs)

	return &app{
		cfg:         cfg,
		repo:        repo,
		vectorStore: vs,
		indexer:     ix,
		recommender: rec,
		pg:          pg,
		close:       func() { db.Close() },
	}, nil
}

func newEmbedder(cfg *config.Config) (embedding.Client, error) {
	if cfg.EmbedLLM.Provider == "ollama" {
		return embedding.NewOllamaEmbedder(&cfg.EmbedLLM, cfg.RAG.VectorSize)
	}
	return embedding.NewOpenAIEmbedder(&cfg.EmbedLLM, cfg.RAG.VectorSize)
}

func runInit(ctx context.Context, a *app) {
	if err := a.repo.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error creating catalog tables")
	}
	if a.pg != nil {
		if err := a.pg.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error creating vector table")
		}
	}
	log.Info().Msg("Schema initialized")
}

func runReindex(ctx context.Context, a *app) {
	report, err := a.indexer.ReindexAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error re-indexing")
	}
	printJSON(report)
}

func runRecommend(ctx context.Context, a *app, query, needsFile string, limit int, sessionID int64) {
	needs, err := loadNeeds(needsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading needs file")
	}

	response, err := a.recommender.Recommend(ctx, recommender.Request{
		Query:          query,
		Needs:          needs,
		MaxResults:     limit,
		VoiceSessionID: sessionID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating recommendations")
	}

	log.Info().Msg("Narrative:")
	fmt.Printf("%s\n\n", response.Narrative)
	printJSON(response.Products)
}

func runSearch(ctx context.Context, a *app, query string, limit int) {
	matches, err := a.recommender.Search(ctx, query, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Error searching")
	}
	for _, m := range matches {
		fmt.Printf("[%.4f] %s/%d: %s\n", m.Distance, m.Record.Kind, m.Record.EntityID, m.Record.ChunkText)
	}
	log.Info().Int("count", len(matches)).Msg("Search complete")
}

func loadNeeds(path string) (models.Needs, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return models.NeedsFromAny(raw), nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}
