package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/ai"
	googleauth "resume-builder/internal/auth"
	"resume-builder/internal/imaging"
	"resume-builder/internal/imaging/imagekit"
	"resume-builder/internal/imaging/origin"
	"resume-builder/internal/llm"
	"resume-builder/internal/llm/gemini"
	"resume-builder/internal/llm/openai"
	"resume-builder/internal/resumes"
	"resume-builder/internal/services/health"
	sharedauth "resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/storage/cache"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/object"
	localstore "resume-builder/internal/shared/storage/object/local"
	s3store "resume-builder/internal/shared/storage/object/s3"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	Cache          *cache.Redis
	Images         imaging.Transformer
	LLM            llm.Client
	Tokens         *sharedauth.TokenService
	UsersRepo      users.Repo
	ResumesRepo    resumes.Repo
	UsersService   *users.Service
	ResumesService *resumes.Service
	AIService      *ai.Service
	Health         *health.Service
	GoogleAuth     *googleauth.GoogleService

	closers []func() error
}

// Build prepares dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, app.fail(err)
	}
	app.Store = store

	images, media, err := buildImages(cfg, store)
	if err != nil {
		return nil, app.fail(err)
	}
	app.Images = images

	app.Cache = cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.PublicCacheTTL)
	app.closers = append(app.closers, app.Cache.Close)

	client, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, app.fail(err)
	}
	app.LLM = client
	if closer, ok := client.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	if err := buildServices(app); err != nil {
		return nil, app.fail(err)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		Verifier:      app.Tokens,
		UserHandler:   users.NewHandler(app.UsersService),
		ResumeHandler: resumes.NewHandler(app.ResumesService),
		AIHandler:     ai.NewHandler(app.AIService),
		GoogleAuth:    app.GoogleAuth,
		Health:        app.Health,
		Media:         media,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *App) fail(err error) error {
	_ = a.Close()
	return err
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildImages returns the transformer and, for the local origin, the handler serving stored images.
func buildImages(cfg config.Config, store object.ObjectStore) (imaging.Transformer, gin.HandlerFunc, error) {
	switch cfg.ImageProvider {
	case "imagekit":
		client, err := imagekit.New(cfg.ImageKitPrivateKey, cfg.ImageKitUploadURL)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		t, err := origin.New(store, cfg.ImageURLEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return t, origin.MediaHandler(store), nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": "gemini"})
			return llm.Unconfigured{}, nil
		}
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	default:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": "openai"})
			return llm.Unconfigured{}, nil
		}
		model := cfg.LLMModel
		if strings.TrimSpace(model) == "" {
			model = "gpt-4o-mini"
		}
		return openai.NewClient(cfg.OpenAIAPIKey, model, cfg.OpenAIBaseURL)
	}
}

func buildServices(app *App) error {
	cfg := app.Config
	secret, err := sharedauth.ResolveSecret(cfg.Env, cfg.JWTSecret)
	if err != nil {
		return err
	}
	tokens, err := sharedauth.NewTokenService(secret, cfg.JWTExpiration)
	if err != nil {
		return err
	}
	hasher, err := sharedauth.NewPasswordHasher(cfg.BcryptCost, cfg.PasswordPepper)
	if err != nil {
		return err
	}
	app.Tokens = tokens

	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ResumesRepo = resumes.NewMemoryRepo()
	}

	app.UsersService = users.NewService(app.UsersRepo, hasher, tokens)

	resumeSvc := resumes.NewService(app.ResumesRepo, app.Images)
	resumeSvc.ImageFolder = cfg.ImageFolder
	resumeSvc.ImageTimeout = cfg.ImageTimeout
	resumeSvc.CacheTTL = cfg.PublicCacheTTL
	if app.Cache.Enabled() {
		resumeSvc.Cache = app.Cache
	}
	app.ResumesService = resumeSvc

	app.AIService = ai.NewService(app.LLM, resumeSvc)
	app.GoogleAuth = googleauth.NewGoogleService(app.UsersService, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL)

	var dbCheck, cacheCheck health.Pinger
	if app.DB != nil {
		dbCheck = app.ResumesRepo
	}
	if app.Cache.Enabled() {
		cacheCheck = app.Cache
	}
	app.Health = health.NewService(dbCheck, cacheCheck)
	return nil
}
