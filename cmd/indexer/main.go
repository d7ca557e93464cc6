// Command indexer builds the data stores the assistants read.
//
//	indexer rag      embed member profiles into the vector store
//	indexer graph    extract the knowledge graph of member profiles
//	indexer members  import a members CSV into the SQL members table
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/community-assistant/server/internal/assistant/embedding"
	"github.com/community-assistant/server/internal/assistant/graphrag"
	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/observers"
	"github.com/community-assistant/server/internal/assistant/rag"
	"github.com/community-assistant/server/internal/assistant/text2sql"
	"github.com/community-assistant/server/internal/config"
	"github.com/community-assistant/server/pkg/database"
	logx "github.com/community-assistant/server/pkg/logger"
)

const usage = "usage: indexer <rag|graph|members> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env()})
	observers.Register(nil)

	start := time.Now()
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "rag":
		err = runRAG(ctx, cfg, args)
	case "graph":
		err = runGraph(ctx, cfg, args)
	case "members":
		err = runMembers(ctx, cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logx.Fatal().Err(err).Str("command", os.Args[1]).Msg("indexing failed")
	}
	logx.Info().Str("command", os.Args[1]).Dur("took", time.Since(start)).Msg("indexing finished")
}

func runRAG(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("rag", flag.ExitOnError)
	dir := fs.String("profiles", cfg.Data.ProfilesDir(), "directory of member profile files")
	out := fs.String("db", cfg.Data.VectorDB(), "vector store SQLite file")
	noCache := fs.Bool("no-cache", false, "skip the Redis embedding cache")
	_ = fs.Parse(args)

	var cache embedding.Cache
	if !*noCache {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			logx.Warn().Err(err).Msg("redis unavailable, embedding without cache")
		} else {
			defer rdb.Close()
			cache = embedding.NewRedisCache(rdb, 0)
		}
	}
	e, err := embedding.NewHTTPEmbedder(cfg.LLM, cfg.Embedding, cache)
	if err != nil {
		return err
	}

	db, err := database.OpenSQLite(ctx, *out)
	if err != nil {
		return err
	}
	defer db.Close()
	store, err := rag.NewVectorStore(ctx, db)
	if err != nil {
		return err
	}

	n, err := rag.NewIndexer(e, store).IndexDir(ctx, *dir)
	if err != nil {
		return err
	}
	logx.Info().Int("chunks", n).Str("db", *out).Msg("vector store written")
	return nil
}

func runGraph(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	dir := fs.String("profiles", cfg.Data.ProfilesDir(), "directory of member profile files")
	out := fs.String("out", cfg.Data.GraphIndexDir(), "graph output directory")
	_ = fs.Parse(args)

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	x, err := graphrag.NewExtractor(ctx, client, cfg.LLM.ChatModel)
	if err != nil {
		return err
	}

	entities, err := graphrag.CreateIndex(filepath.Join(*out, graphrag.EntityIndexName))
	if err != nil {
		return err
	}
	defer entities.Close()
	relations, err := graphrag.CreateIndex(filepath.Join(*out, graphrag.RelationIndexName))
	if err != nil {
		return err
	}
	defer relations.Close()

	db, err := database.OpenSQLite(ctx, filepath.Join(*out, filepath.Base(cfg.Data.GraphDB())))
	if err != nil {
		return err
	}
	defer db.Close()
	store, err := graphrag.NewStore(ctx, db)
	if err != nil {
		return err
	}

	g, err := graphrag.NewIndexer(x, store, entities, relations).IndexDir(ctx, *dir)
	if err != nil {
		return err
	}
	logx.Info().Int("entities", len(g.Entities)).Int("relations", len(g.Relations)).Str("out", *out).Msg("graph written")
	return nil
}

func runMembers(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("members", flag.ExitOnError)
	csvPath := fs.String("csv", filepath.Join(cfg.Data.Dir, "members.csv"), "members CSV file")
	driver := fs.String("driver", cfg.SQL.Driver, "database/sql driver")
	dsn := fs.String("dsn", "", "writable data source (default: the SQL_DSN file opened read-write)")
	_ = fs.Parse(args)

	target := database.Config{Driver: *driver, DSN: *dsn}
	if target.DSN == "" {
		target.DSN = writableDSN(cfg.SQL)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open members csv: %w", err)
	}
	defer f.Close()

	db, err := target.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := text2sql.ImportMembersCSV(ctx, db, target.Driver, f)
	if err != nil {
		return err
	}
	logx.Info().Int("rows", n).Str("driver", target.Driver).Msg("members imported")
	return nil
}
