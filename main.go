package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fabfab/support-agent/agent"
	"github.com/fabfab/support-agent/api"
	"github.com/fabfab/support-agent/config"
	"github.com/fabfab/support-agent/database"
	"github.com/fabfab/support-agent/embeddings"
	"github.com/fabfab/support-agent/ingestion"
	"github.com/fabfab/support-agent/llm"
	"github.com/fabfab/support-agent/logging"
	"github.com/fabfab/support-agent/retrieval"
	"github.com/fabfab/support-agent/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger)
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "message":
		messageCmd(cfg, logger, os.Args[2:])
	case "eval":
		evalCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Error("unknown command", zap.String("command", os.Args[1]))
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *zap.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	orchestrator, svc := buildAgent(cfg, logger, pool)

	server := api.New(
		orchestrator,
		svc,
		store.NewTicketStore(pool),
		store.NewEventLog(pool),
		store.NewChunkStore(pool),
		cfg.KnowledgeDir,
		logger,
	)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server}

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	logger.Info("serving support agent", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server", zap.Error(err))
	}
}

func ingestCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dir := flags.String("dir", cfg.KnowledgeDir, "path to directory containing support documents")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse ingest flags", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal("embedder setup", zap.Error(err))
	}

	svc := ingestion.NewService(store.NewChunkStore(pool), embedder, logger, cfg.ChunkSize)
	if err := svc.IngestDirectory(ctx, *dir); err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}
}

func messageCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("message", flag.ExitOnError)
	sessionID := flags.String("session", "", "session identifier (generated when empty)")
	customerName := flags.String("name", "", "customer name")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse message flags", zap.Error(err))
	}

	message := flags.Arg(0)
	if message == "" {
		logger.Fatal("message text is required")
	}
	if *sessionID == "" {
		*sessionID = uuid.NewString()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	orchestrator, _ := buildAgent(cfg, logger, pool)
	result := orchestrator.HandleMessage(ctx, message, *sessionID, *customerName)

	fmt.Println(result.Response)
	if result.TicketNumber != "" {
		fmt.Printf("Ticket: #%s\n", result.TicketNumber)
	}
	if !result.Success {
		os.Exit(1)
	}
}

func evalCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("eval", flag.ExitOnError)
	casesPath := flags.String("cases", "eval/test_cases.json", "path to JSON eval cases")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse eval flags", zap.Error(err))
	}

	cases, err := agent.LoadEvalCases(*casesPath)
	if err != nil {
		logger.Fatal("load eval cases", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	orchestrator, _ := buildAgent(cfg, logger, pool)
	report := orchestrator.Evaluate(ctx, "eval-session", cases)

	fmt.Printf("Total test cases: %d\n", report.Total)
	fmt.Printf("Correct category predictions: %d\n", report.Correct)
	fmt.Printf("Accuracy: %.2f%%\n", report.Accuracy()*100)
}

func clearCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse clear flags", zap.Error(err))
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the retrieval index. Continue? [y/N]: ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || (answer != "y" && answer != "yes") {
			fmt.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	if err := store.NewChunkStore(pool).ClearChunks(ctx); err != nil {
		logger.Fatal("clear index", zap.Error(err))
	}
	logger.Info("retrieval index cleared")
}

func mustPool(ctx context.Context, cfg config.Config, logger *zap.Logger) *pgxpool.Pool {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection", zap.Error(err))
	}
	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}
	return pool
}

func buildAgent(cfg config.Config, logger *zap.Logger, pool *pgxpool.Pool) (*agent.Orchestrator, *ingestion.Service) {
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal("llm setup", zap.Error(err))
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal("embedder setup", zap.Error(err))
	}

	tickets := store.NewTicketStore(pool)
	events := store.NewEventLog(pool)
	chunks := store.NewChunkStore(pool)

	retriever := retrieval.NewRetriever(chunks, embedder, logger)

	orchestrator := agent.NewOrchestrator(
		agent.NewClassifier(llmClient, logger),
		agent.NewFeedbackAgent(llmClient, tickets, cfg.Channel, logger),
		agent.NewStatusAgent(llmClient, tickets, logger),
		agent.NewKnowledgeAgent(llmClient, retriever, cfg.RetrieveTopK, logger),
		events,
		logger,
	)

	svc := ingestion.NewService(chunks, embedder, logger, cfg.ChunkSize)
	return orchestrator, svc
}

func printUsage() {
	fmt.Println("Usage: support-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  ingest   Build the retrieval index from support documents (use --dir to override)")
	fmt.Println("  message  Handle a single message from the command line")
	fmt.Println("  eval     Run classification accuracy over a JSON case file")
	fmt.Println("  clear    Remove all chunks from the retrieval index")
}
