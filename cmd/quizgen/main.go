package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/quizgen/internal/config"
	"github.com/kailas-cloud/quizgen/internal/db"
	dbFile "github.com/kailas-cloud/quizgen/internal/db/file"
	dbRedis "github.com/kailas-cloud/quizgen/internal/db/redis"
	"github.com/kailas-cloud/quizgen/internal/domain"
	logpkg "github.com/kailas-cloud/quizgen/internal/logger"
	"github.com/kailas-cloud/quizgen/internal/metrics"
	"github.com/kailas-cloud/quizgen/internal/pipeline"
	"github.com/kailas-cloud/quizgen/internal/repository/embcache"
	"github.com/kailas-cloud/quizgen/internal/repository/pagecache"
	"github.com/kailas-cloud/quizgen/internal/retry"
	openaiTransport "github.com/kailas-cloud/quizgen/internal/transport/openai"
	"github.com/kailas-cloud/quizgen/internal/transport/wikipedia"
	conceptsuc "github.com/kailas-cloud/quizgen/internal/usecase/concepts"
	evaluc "github.com/kailas-cloud/quizgen/internal/usecase/eval"
	quizuc "github.com/kailas-cloud/quizgen/internal/usecase/quiz"
	resolveuc "github.com/kailas-cloud/quizgen/internal/usecase/resolve"
	seeduc "github.com/kailas-cloud/quizgen/internal/usecase/seed"
	"github.com/kailas-cloud/quizgen/internal/version"
)

const (
	artifactQuestions   = "questions.json"
	artifactConcepts    = "concepts.json"
	artifactQuizzes     = "quizzes.json"
	artifactEvaluations = "evaluations.json"
)

func main() {
	os.Exit(run())
}

func run() int {
	step := flag.String("step", "all", "pipeline step to run: seed, concepts, quiz, eval, all")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	clearCache := flag.Bool("clear-cache", false, "remove every cached page before running")
	metricsPort := flag.Int("metrics-port", -1, "prometheus port override, 0 disables")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return 1
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *metricsPort >= 0 {
		cfg.Metrics.Port = *metricsPort
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting quizgen pipeline",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("step", *step),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("model", cfg.LLM.Model),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	if srv := metrics.Serve(cfg.Metrics.Port, logger); srv != nil {
		defer func() { _ = srv.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Cache store based on driver
	var store db.Store
	switch cfg.Cache.Driver {
	case "file":
		store, err = dbFile.NewStore(cfg.Cache.Dir)
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
	default:
		logger.Error("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
		return 1
	}
	if err != nil {
		logger.Error("Failed to create cache store", zap.Error(err))
		return 1
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, 10*time.Second); err != nil {
		logger.Error("Cache store not ready", zap.Error(err))
		return 1
	}

	pages := pagecache.New(store, metrics.PageCacheTotal, logger)

	if *clearCache {
		removed, err := pages.Clear(ctx)
		if err != nil {
			logger.Error("Failed to clear page cache", zap.Error(err))
			return 1
		}
		logger.Info("Page cache cleared", zap.Int("entries_removed", removed))
	}
	if stats, err := pages.Stats(ctx); err == nil {
		logger.Info("Page cache state",
			zap.Int("entries", stats.Entries),
			zap.Int64("bytes", stats.Bytes),
		)
	}

	exec := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
		Jitter:      true,
	}, logger)

	// One limiter spaces every article fetch process-wide, retries included.
	wiki := wikipedia.NewClient(wikipedia.Config{
		BaseURL:   cfg.Wikipedia.BaseURL,
		UserAgent: cfg.Wikipedia.UserAgent,
		Timeout:   time.Duration(cfg.Wikipedia.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	limiter := rate.NewLimiter(rate.Every(cfg.WikipediaDelay()), 1)
	resolver := resolveuc.New(pages, wiki, limiter, exec, logger)

	// Embedder chain: OpenAI -> Cached -> Retry
	var embedder domain.Embedder = openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	embedder = retry.NewEmbedder(embedder, exec)

	// Generator chain: OpenAI -> Limited
	var generator domain.Generator = openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	generator = openaiTransport.NewLimited(generator, cfg.LLM.MaxConcurrency)

	workers := cfg.Pipeline.Workers
	seedSvc := seeduc.New(generator, exec, workers, logger)
	conceptSvc := conceptsuc.New(generator, exec, workers, logger)
	quizSvc := quizuc.New(resolver, embedder, quizuc.NewSynthesizer(generator, exec, logger), quizuc.Params{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		TopK:         cfg.Index.TopK,
	}, workers, logger)
	evalSvc := evaluc.New(generator, exec, workers, logger)

	artifact := func(name string) string { return filepath.Join(cfg.Paths.ArtifactsDir, name) }

	orch := pipeline.New([]pipeline.Stage{
		{
			Name:   "seed",
			Output: artifact(artifactQuestions),
			Run: func(ctx context.Context) (pipeline.Result, error) {
				areas, err := loadAreas(cfg.Paths.AreasFile)
				if err != nil {
					return pipeline.Result{}, err
				}
				questions, err := seedSvc.Run(ctx, areas)
				if err != nil {
					return pipeline.Result{}, err
				}
				if err := pipeline.SaveArtifact(artifact(artifactQuestions), questions); err != nil {
					return pipeline.Result{}, err
				}
				want := len(areas) * len(domain.EducationLevels) * domain.QuestionsPerArea
				return pipeline.Result{
					Succeeded: len(questions),
					Skipped:   want - len(questions),
				}, nil
			},
		},
		{
			Name:   "concepts",
			Inputs: []string{artifact(artifactQuestions)},
			Output: artifact(artifactConcepts),
			Run: func(ctx context.Context) (pipeline.Result, error) {
				questions, err := pipeline.LoadArtifact[domain.SeedQuestion](artifact(artifactQuestions))
				if err != nil {
					return pipeline.Result{}, err
				}
				sets, err := conceptSvc.Run(ctx, questions)
				if err != nil {
					return pipeline.Result{}, err
				}
				if err := pipeline.SaveArtifact(artifact(artifactConcepts), sets); err != nil {
					return pipeline.Result{}, err
				}
				return pipeline.Result{Succeeded: len(sets), Skipped: len(questions) - len(sets)}, nil
			},
		},
		{
			Name:   "quiz",
			Inputs: []string{artifact(artifactConcepts)},
			Output: artifact(artifactQuizzes),
			Run: func(ctx context.Context) (pipeline.Result, error) {
				sets, err := pipeline.LoadArtifact[domain.ConceptSet](artifact(artifactConcepts))
				if err != nil {
					return pipeline.Result{}, err
				}
				quizzes, err := quizSvc.Run(ctx, sets)
				if err != nil {
					return pipeline.Result{}, err
				}
				if err := pipeline.SaveArtifact(artifact(artifactQuizzes), quizzes); err != nil {
					return pipeline.Result{}, err
				}
				return pipeline.Result{Succeeded: len(quizzes), Skipped: len(sets) - len(quizzes)}, nil
			},
		},
		{
			Name:   "eval",
			Inputs: []string{artifact(artifactQuestions), artifact(artifactQuizzes)},
			Output: artifact(artifactEvaluations),
			Run: func(ctx context.Context) (pipeline.Result, error) {
				questions, err := pipeline.LoadArtifact[domain.SeedQuestion](artifact(artifactQuestions))
				if err != nil {
					return pipeline.Result{}, err
				}
				quizzes, err := pipeline.LoadArtifact[domain.QuizSet](artifact(artifactQuizzes))
				if err != nil {
					return pipeline.Result{}, err
				}
				evals, err := evalSvc.Run(ctx, questions, quizzes)
				if err != nil {
					return pipeline.Result{}, err
				}
				if err := pipeline.SaveArtifact(artifact(artifactEvaluations), evals); err != nil {
					return pipeline.Result{}, err
				}
				failed := 0
				for _, ev := range evals {
					if ev.Error != "" {
						failed++
					}
				}
				return pipeline.Result{Succeeded: len(evals) - failed, Skipped: failed}, nil
			},
		},
	}, logger)

	start := time.Now()
	switch *step {
	case "all":
		err = orch.RunAll(ctx)
	case "seed", "concepts", "quiz", "eval":
		err = orch.RunStage(ctx, *step)
	default:
		fmt.Fprintf(os.Stderr, "unknown step %q; want seed, concepts, quiz, eval or all\n", *step)
		return 1
	}
	if err != nil {
		logger.Error("Pipeline failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return 1
	}

	logger.Info("Pipeline finished", zap.Duration("elapsed", time.Since(start)))
	return 0
}

// loadAreas reads the knowledge area list, one area per line. Blank lines
// and #-comments are ignored.
func loadAreas(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	defer f.Close()

	var areas []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		areas = append(areas, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	if len(areas) == 0 {
		return nil, fmt.Errorf("areas file %s is empty", path)
	}
	return areas, nil
}
