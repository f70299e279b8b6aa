package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"unibot/internal/answer"
	"unibot/internal/bus"
	"unibot/internal/channel"
	"unibot/internal/config"
	"unibot/internal/ingest"
	"unibot/internal/provider"
	"unibot/internal/rag"
	"unibot/internal/session"
	"unibot/internal/vectorstore"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "unibot",
		Short: "unibot: university study-regulations assistant",
		Long:  "unibot answers student questions about statutes, study regulations and Moodle courses, grounded in the indexed documents.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: config/config.json)")

	root.AddCommand(chatCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.General.LogLevel)}))
	return cfg, nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session (CLI, plus Telegram if enabled)",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openai := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:         cfg.Provider.APIKey,
		APIBase:        cfg.Provider.APIBase,
		ChatModel:      cfg.Provider.ChatModel,
		EmbeddingModel: cfg.Provider.EmbeddingModel,
		MaxTokens:      cfg.Provider.MaxTokens,
		Logger:         logger,
	})

	store, err := vectorstore.NewSQLiteStore(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()

	// An empty index means first run (or a deleted database): rebuild it
	// from the corpus before taking questions.
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("inspect vector store: %w", err)
	}
	if count == 0 {
		logger.Info("index empty, ingesting corpus", "pdf_dir", cfg.Corpus.PDFDir)
		pipeline := ingest.NewPipeline(cfg.Corpus, openai, store, logger)
		if err := pipeline.Run(ctx); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if count, err = store.Count(ctx); err != nil {
			return fmt.Errorf("inspect vector store: %w", err)
		}
	}
	logger.Info("vector store ready", "chunks", count)

	sess, err := session.New(session.Config{FeedbackDir: cfg.Feedback.Dir, Logger: logger})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	messageBus := bus.New(32, logger)
	defer messageBus.Close()

	engine := answer.NewEngine(answer.EngineConfig{
		Retriever: rag.NewRetriever(rag.RetrieverConfig{
			Embedder:       openai,
			Store:          store,
			TopK:           cfg.Retrieval.TopK,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
			Logger:         logger,
		}),
		Composer: rag.NewComposer(rag.ComposerConfig{
			Generator:        openai,
			ContextThreshold: cfg.Retrieval.ContextThreshold,
			Logger:           logger,
		}),
		Session: sess,
		Bus:     messageBus,
		Logger:  logger,
	})
	go engine.Run(ctx)

	if cfg.Channels.Telegram.Enabled {
		telegramCh := channel.NewTelegram(channel.TelegramChannelConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			Session:   sess,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, messageBus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	}

	if !cfg.Channels.CLI.Enabled {
		logger.Info("cli channel disabled, running until interrupted")
		<-ctx.Done()
		return nil
	}

	cliCh := channel.NewCLI(channel.CLIConfig{
		Session:       sess,
		Logger:        logger,
		IndexedChunks: count,
	})
	return cliCh.Start(ctx, messageBus)
}

func ingestCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index the PDF corpus and link catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if rebuild {
				if err := os.Remove(cfg.Store.Path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove index: %w", err)
				}
				logger.Info("existing index removed", "path", cfg.Store.Path)
			}

			openai := provider.NewOpenAI(provider.OpenAIConfig{
				APIKey:         cfg.Provider.APIKey,
				APIBase:        cfg.Provider.APIBase,
				ChatModel:      cfg.Provider.ChatModel,
				EmbeddingModel: cfg.Provider.EmbeddingModel,
				MaxTokens:      cfg.Provider.MaxTokens,
				Logger:         logger,
			})

			store, err := vectorstore.NewSQLiteStore(cfg.Store.Path, logger)
			if err != nil {
				return fmt.Errorf("open vector store: %w", err)
			}
			defer store.Close()

			pipeline := ingest.NewPipeline(cfg.Corpus, openai, store, logger)
			if err := pipeline.Run(ctx); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			count, err := store.Count(ctx)
			if err != nil {
				return err
			}
			logger.Info("ingestion finished", "chunks", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "delete the existing index before ingesting")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index and provider status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()

			logger.Info("unibot", "version", version, "config", resolveConfigPath())

			openai := provider.NewOpenAI(provider.OpenAIConfig{
				APIKey:  cfg.Provider.APIKey,
				APIBase: cfg.Provider.APIBase,
				Logger:  logger,
			})
			if err := openai.Healthy(ctx); err != nil {
				logger.Warn("provider unreachable", "err", err)
			} else {
				logger.Info("provider healthy", "chat_model", cfg.Provider.ChatModel, "embedding_model", cfg.Provider.EmbeddingModel)
			}

			store, err := vectorstore.NewSQLiteStore(cfg.Store.Path, logger)
			if err != nil {
				return fmt.Errorf("open vector store: %w", err)
			}
			defer store.Close()
			count, err := store.Count(ctx)
			if err != nil {
				return err
			}
			logger.Info("vector store", "path", cfg.Store.Path, "chunks", count)
			return nil
		},
	}
}
