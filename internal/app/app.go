// Package app wires configuration, Redis, the course indexes, the chat model
// and the memory backend together for the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/config"
	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/memory/local"
	memserver "github.com/smallnest/courseqa/memory/server"
	"github.com/smallnest/courseqa/memory/sqlstore"
	"github.com/smallnest/courseqa/rag"
	"github.com/smallnest/courseqa/rag/loader"
	"github.com/smallnest/courseqa/rag/store"
)

// Options are the command line switches that affect wiring.
type Options struct {
	ConfigPath string
	Debug      bool
	Quiet      bool
	// CleanupOnExit removes all courses from Redis in Close.
	CleanupOnExit bool
	// Optimize makes the engineered stage render compact course text.
	Optimize bool
}

// Needs says which collaborators a command wants.
type Needs struct {
	LLM    bool // chat model and embeddings, requires OPENAI_API_KEY
	Memory bool
	Load   bool // populate empty course indexes
}

// App holds everything a command runs against. Stages 1 and 2 read the
// basic index, later stages the hierarchical one.
type App struct {
	Config *config.Config
	Logger log.Logger

	Courses      *rag.CourseManager
	Basic        *rag.CourseManager
	Hierarchical map[string]catalog.HierarchicalCourse
	Memory       memory.Client
	Model        llms.Model
	Counter      *cqllms.TokenCounter

	opts     Options
	rdb      *redis.Client
	embedder cqllms.Embedder
	closers  []func() error
}

// New loads the configuration and opens what n asks for. On error every
// opened resource is released.
func New(ctx context.Context, opts Options, n Needs) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.RequireLLM = n.LLM
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg, opts)

	a := &App{Config: cfg, Logger: log.Named("app"), opts: opts}

	a.rdb, err = store.NewClient(store.RedisOptions{URL: cfg.RedisURL})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.rdb.Close)

	a.embedder = cqllms.NewOpenAIEmbedder(cfg.OpenAIAPIKey,
		cqllms.WithEmbedderBaseURL(cfg.OpenAIBaseURL),
		cqllms.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	a.Courses = rag.NewCourseManager(store.NewRedisCourseStore(a.rdb, cfg.CourseIndex), a.embedder)
	a.Basic = rag.NewCourseManager(store.NewRedisCourseStore(a.rdb, cfg.BasicIndex), a.embedder)

	if err := a.open(ctx, n); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context, n Needs) error {
	cfg := a.Config
	if n.LLM {
		model, err := cqllms.NewChatModel(cqllms.ChatConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ChatModel,
		})
		if err != nil {
			return err
		}
		a.Model = model
		a.Counter = cqllms.NewTokenCounter(cfg.ChatModel)
	}

	if n.Load {
		if err := a.LoadCourses(ctx, false); err != nil {
			return err
		}
	}

	if courses, err := catalog.LoadHierarchical(cfg.HierarchicalDataPath); err != nil {
		a.Logger.Warn("Hierarchical details unavailable: %v", err)
	} else {
		a.Hierarchical = catalog.IndexByCode(courses)
	}

	if n.Memory {
		return a.openMemory(ctx)
	}
	return nil
}

func setupLogging(cfg *config.Config, opts Options) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	switch {
	case opts.Debug:
		level = log.LogLevelDebug
	case opts.Quiet:
		level = log.LogLevelError
	}
	log.SetDefaultLogger(log.NewConsoleLogger(os.Stderr, level))
	if !ok {
		log.Warn("Unknown log level %q, using info", cfg.LogLevel)
	}
}

// openMemory builds the configured memory backend: the Agent Memory Server,
// or Redis working memory with a SQLite or Postgres long-term store.
func (a *App) openMemory(ctx context.Context) error {
	cfg := a.Config
	if cfg.MemoryBackend == config.BackendServer {
		a.Memory = memserver.New(
			memserver.WithBaseURL(cfg.AgentMemoryURL),
			memserver.WithNamespace(cfg.MemoryNamespace),
		)
		a.Logger.Info("Agent Memory Server: %s", cfg.AgentMemoryURL)
		return nil
	}

	var (
		lt  memory.LongTermStore
		err error
	)
	switch cfg.MemoryBackend {
	case config.BackendSQLite:
		var s *sqlstore.SQLiteStore
		if s, err = sqlstore.NewSQLiteStore(sqlstore.SQLiteOptions{Path: cfg.SQLitePath}); err == nil {
			lt = s
		}
	case config.BackendPostgres:
		var s *sqlstore.PostgresStore
		if s, err = sqlstore.NewPostgresStore(ctx, sqlstore.PostgresOptions{ConnString: cfg.PostgresDSN}); err == nil {
			lt = s
		}
	default:
		err = fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.MemoryBackend)
	}
	if err != nil {
		return fmt.Errorf("open %s memory store: %w", cfg.MemoryBackend, err)
	}

	client, err := local.New(a.rdb, lt, a.embedder, local.Options{Namespace: cfg.MemoryNamespace})
	if err != nil {
		lt.Close()
		return err
	}
	a.Memory = client
	a.closers = append(a.closers, client.Close)
	a.Logger.Info("Local memory: Redis working memory, %s long-term store", cfg.MemoryBackend)
	return nil
}

// ManagerFor returns the course index a stage reads.
func (a *App) ManagerFor(stage agents.Stage) *rag.CourseManager {
	if stage <= agents.StageEngineered {
		return a.Basic
	}
	return a.Courses
}

// LoadCourses fills both indexes from the hierarchical catalog.
func (a *App) LoadCourses(ctx context.Context, force bool) error {
	for _, m := range []*rag.CourseManager{a.Courses, a.Basic} {
		if _, err := loader.LoadCoursesIfNeeded(ctx, m, a.Config.HierarchicalDataPath, force); err != nil {
			return err
		}
	}
	return nil
}

// CleanupCourses empties both indexes.
func (a *App) CleanupCourses(ctx context.Context) error {
	var errs []error
	for _, m := range []*rag.CourseManager{a.Courses, a.Basic} {
		errs = append(errs, loader.CleanupCourses(ctx, m))
	}
	return errors.Join(errs...)
}

// Workflow compiles stage against the opened collaborators.
func (a *App) Workflow(stage agents.Stage) (*agents.Workflow, error) {
	return agents.New(stage, agents.Deps{
		Model:                a.Model,
		Manager:              a.ManagerFor(stage),
		Hierarchical:         a.Hierarchical,
		Memory:               a.Memory,
		Counter:              a.Counter,
		MemoryModelName:      a.Config.MemoryModelName,
		Optimize:             a.opts.Optimize,
		MaxReActIterations:   a.Config.MaxReActIterations,
		MaxQualityIterations: a.Config.MaxQualityIterations,
	})
}

// OpenStage opens an App for stage, loading courses and memory as the stage
// requires, and compiles its workflow.
func OpenStage(ctx context.Context, opts Options, stage agents.Stage) (*App, *agents.Workflow, error) {
	a, err := New(ctx, opts, Needs{LLM: true, Memory: stage.UsesMemory(), Load: true})
	if err != nil {
		return nil, nil, err
	}
	w, err := a.Workflow(stage)
	if err != nil {
		a.Close(ctx)
		return nil, nil, err
	}
	a.Logger.Debug("Workflow %s ready", stage)
	return a, w, nil
}

// Close releases connections in reverse order. With CleanupOnExit the
// course indexes are emptied first.
func (a *App) Close(ctx context.Context) {
	if a.opts.CleanupOnExit && a.rdb != nil {
		if err := a.CleanupCourses(context.WithoutCancel(ctx)); err != nil {
			a.Logger.Warn("Cleanup failed: %v", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Debug("close: %v", err)
		}
	}
	a.closers = nil
}
