// Package app wires configuration, storage, the event bus and the
// application handlers into one container shared by the console and HTTP
// entry points.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/codevia/codevia/config"
	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/infrastructure/messaging"
	"github.com/codevia/codevia/internal/infrastructure/metrics"
	"github.com/codevia/codevia/internal/infrastructure/persistence/directory"
	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
	"github.com/codevia/codevia/internal/infrastructure/persistence/mongo"
	"github.com/codevia/codevia/internal/infrastructure/persistence/postgres"
	"github.com/codevia/codevia/internal/infrastructure/persistence/redis"
	"github.com/codevia/codevia/internal/infrastructure/security"
	"github.com/codevia/codevia/internal/interface/http/handlers"
	"github.com/codevia/codevia/pkg/circuitbreaker"
	"github.com/codevia/codevia/pkg/logger"
	"github.com/codevia/codevia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTAINER
// ══════════════════════════════════════════════════════════════════════════════

// Commands groups the write-side handlers.
type Commands struct {
	RegisterUser         *command.RegisterUserHandler
	Login                *command.LoginHandler
	UnlockSkill          *command.UnlockSkillHandler
	SubmitQuiz           *command.SubmitQuizHandler
	ChangePassword       *command.ChangePasswordHandler
	DeleteAccount        *command.DeleteAccountHandler
	RequestPasswordReset *command.RequestPasswordResetHandler
}

// Queries groups the read-side handlers.
type Queries struct {
	ListSkills       *query.ListSkillsHandler
	QuizCatalog      *query.QuizCatalogHandler
	DailyChallenge   *query.GetDailyChallengeHandler
	ListAchievements *query.ListAchievementsHandler
	Account          *query.GetAccountHandler
	DirectoryStats   *query.DirectoryStatsHandler
}

// App is the assembled application.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Bus     *messaging.InMemoryEventBus

	Store     docstore.Store
	Mirror    *docstore.Mirror
	Directory *directory.Directory
	Sessions  *session.Registry
	Hasher    *security.PasswordHasher
	Health    *handlers.CompositeHealthChecker

	Commands Commands
	Queries  Queries
}

// Options tune New.
type Options struct {
	// Tokens signs login tokens; nil logs in without one.
	Tokens command.TokenIssuer

	// Clock overrides the wall clock.
	Clock timeutil.Clock

	// PasswordCost overrides the bcrypt cost.
	PasswordCost int
}

// New assembles the application. The document store is connected in the
// background when the directory.bootstrap flag is on, otherwise before New
// returns. A store that cannot be reached leaves the directory in memory only.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	flags := cfg.Features
	if flags == nil {
		flags = config.NewFeatureFlags()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.NewSystemClock(cfg.App.Location)
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(cfg.Observability.RuntimeMetrics),
		Hasher:  security.NewPasswordHasher(opts.PasswordCost),
		Health:  handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	a.Bus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Logger:         log,
		EnableMetrics:  true,
	})
	if err := a.Metrics.Subscribe(a.Bus); err != nil {
		return nil, fmt.Errorf("subscribe metrics: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. RULES
	// ─────────────────────────────────────────────────────────────────────────
	rules, err := session.NewRules(session.RulesConfig{
		LevelPolicy:    cfg.Game.LevelPolicy,
		SkillBonusXP:   cfg.Game.SkillBonusXP,
		XPPerCorrect:   cfg.Game.XPPerCorrect,
		DailyThreshold: cfg.Game.DailyThreshold,
		DailyRewardXP:  cfg.Game.DailyRewardXP,
	}, clock)
	if err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DOCUMENT STORE & DIRECTORY
	// ─────────────────────────────────────────────────────────────────────────
	a.Store, err = NewStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Mirror = docstore.NewMirror(a.Store, docstore.MirrorConfig{
		Collection: cfg.Store.Collection,
		Timeout:    cfg.Store.WriteTimeout,
		Failures:   a.Metrics.StoreMirrorFailures,
		Breaker: circuitbreaker.StoreBreaker(a.Store.Name(), func(name string, from, to circuitbreaker.State) {
			log.Warn("document store circuit changed",
				logger.StoreDriver(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}, log)
	a.Directory = directory.New(a.Mirror,
		directory.WithClock(clock),
		directory.WithNormalizer(rules.Progression.Normalize),
		directory.WithLogger(log),
	)

	if flags.IsEnabled(config.FeatureDirectoryDemoUsers, nil) {
		demo, err := directory.DemoUsers(a.Hasher.Hash)
		if err != nil {
			return nil, err
		}
		n := a.Directory.Seed(demo...)
		log.Info("demo users seeded", logger.Int("count", n))
	}

	a.Health.AddReadinessCheck("store", handlers.NewStoreCheck(a.Store))
	if flags.IsEnabled(config.FeatureDirectoryBootstrap, nil) {
		a.Directory.StartBootstrap(ctx, cfg.Store.BootstrapDelay, cfg.Store.BootstrapTimeout)
		a.Health.AddReadinessCheck("bootstrap", handlers.NewBootstrapCheck(a.Directory.Bootstrapped()))
	} else {
		a.connectNow(ctx)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	a.Sessions = session.NewRegistry(session.Deps{
		Rules:     rules,
		Directory: a.Directory,
		Publisher: a.Bus,
		Logger:    log,
	})

	a.Commands = Commands{
		RegisterUser:         command.NewRegisterUserHandler(a.Directory, a.Hasher, a.Bus, log),
		Login:                command.NewLoginHandler(a.Directory, a.Hasher, a.Sessions, opts.Tokens, log),
		UnlockSkill:          command.NewUnlockSkillHandler(a.Sessions),
		SubmitQuiz:           command.NewSubmitQuizHandler(a.Sessions),
		ChangePassword:       command.NewChangePasswordHandler(a.Sessions, a.Hasher, log),
		DeleteAccount:        command.NewDeleteAccountHandler(a.Directory, a.Sessions, a.Hasher, a.Bus, log),
		RequestPasswordReset: command.NewRequestPasswordResetHandler(a.Directory, flags, log),
	}
	a.Queries = Queries{
		ListSkills:       query.NewListSkillsHandler(a.Sessions),
		QuizCatalog:      query.NewQuizCatalogHandler(rules.Quizzes),
		DailyChallenge:   query.NewGetDailyChallengeHandler(a.Sessions),
		ListAchievements: query.NewListAchievementsHandler(a.Sessions),
		Account:          query.NewGetAccountHandler(a.Sessions),
		DirectoryStats:   query.NewDirectoryStatsHandler(a.Directory, a.Sessions, a.Mirror),
	}

	log.Info("application ready",
		logger.StoreDriver(a.Store.Name()),
		logger.String("level_policy", rules.Progression.Policy().Name()),
		logger.Int("users", a.Directory.Count(ctx)),
	)
	return a, nil
}

// connectNow connects the store and loads users before returning.
func (a *App) connectNow(ctx context.Context) {
	timeout := a.Config.Store.ConnectTimeout
	if timeout <= 0 {
		timeout = docstore.DefaultMirrorTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Store.Connect(connectCtx); err != nil {
		a.Logger.Warn("document store unavailable, running in memory only",
			logger.StoreDriver(a.Store.Name()), logger.Err(err))
		return
	}
	if _, err := a.Directory.LoadFromStore(connectCtx); err != nil {
		a.Logger.Warn("directory load failed", logger.Err(err))
	}
}

// Close drains the event bus and pending mirror writes, then closes the
// store. It gives up waiting for the mirror when ctx ends.
func (a *App) Close(ctx context.Context) error {
	if err := a.Bus.Close(); err != nil {
		a.Logger.Warn("event bus close failed", logger.Err(err))
	}

	done := make(chan struct{})
	go func() {
		a.Mirror.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("abandoning pending store writes", logger.Int64("pending", a.Mirror.Pending()))
	}

	if err := a.Store.Close(ctx); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

// NewStore builds the document store named by cfg.Store.Driver. The store is
// not connected.
func NewStore(cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory, "":
		return docstore.NewMemoryStore(), nil

	case config.DriverMongo:
		mc := mongo.DefaultConfig()
		mc.URI = cfg.Mongo.URI
		if cfg.Mongo.Database != "" {
			mc.Database = cfg.Mongo.Database
		}
		if cfg.Mongo.MaxPoolSize > 0 {
			mc.MaxPoolSize = uint64(cfg.Mongo.MaxPoolSize)
		}
		if cfg.Store.ConnectTimeout > 0 {
			mc.ConnectTimeout = cfg.Store.ConnectTimeout
		}
		return mongo.NewStore(mc), nil

	case config.DriverRedis:
		rc := redis.DefaultConfig()
		rc.Host = cfg.Redis.Host
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			rc.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			rc.MinIdleConns = cfg.Redis.MinIdleConns
		}
		if cfg.Redis.DialTimeout > 0 {
			rc.DialTimeout = cfg.Redis.DialTimeout
		}
		if cfg.Redis.KeyPrefix != "" {
			rc.KeyPrefix = cfg.Redis.KeyPrefix
		}
		return redis.NewStore(rc), nil

	case config.DriverPostgres:
		pc := postgres.DefaultConfig()
		pc.URL = cfg.Database.URL
		if cfg.Database.Host != "" {
			pc.Host = cfg.Database.Host
		}
		if cfg.Database.Port > 0 {
			pc.Port = cfg.Database.Port
		}
		if cfg.Database.Name != "" {
			pc.Database = cfg.Database.Name
		}
		if cfg.Database.User != "" {
			pc.User = cfg.Database.User
		}
		pc.Password = cfg.Database.Password
		if cfg.Database.SSLMode != "" {
			pc.SSLMode = cfg.Database.SSLMode
		}
		if cfg.Database.MaxConns > 0 {
			pc.MaxConns = int32(cfg.Database.MaxConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			pc.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		}
		if cfg.Store.ConnectTimeout > 0 {
			pc.ConnectTimeout = cfg.Store.ConnectTimeout
		}
		return postgres.NewStore(pc), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// NewLogger builds the process logger from the observability settings.
func NewLogger(obs config.ObservabilityConfig, out io.Writer) *logger.Logger {
	return logger.New(logger.Options{
		Output:     out,
		Level:      logger.ParseLevel(obs.LogLevel),
		Format:     obs.LogFormat,
		File:       obs.LogFile,
		MaxSizeMB:  obs.LogMaxSizeMB,
		MaxBackups: obs.LogMaxBackups,
		MaxAgeDays: obs.LogMaxAgeDays,
		AddCaller:  true,
	})
}

// ShutdownContext returns a context bounded by the configured shutdown
// timeout.
func ShutdownContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
