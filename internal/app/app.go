// Package app connects the stores and builds the services shared by the
// server and the ops CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"carepath/internal/cache"
	"carepath/internal/config"
	"carepath/internal/repository"
	"carepath/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds the connected stores and the services built on them
type App struct {
	Config *config.Config

	ProgramRepo     repository.ProgramRepo
	StructureRepo   repository.StructureRepo
	TranslationRepo repository.TranslationRepo
	LegacyRepo      repository.LegacyConfigRepo
	ComposedCache   cache.ComposedCache
	UnlockIndex     cache.UnlockIndex

	AuthService    *service.AuthService
	ProgramService *service.ProgramService
	ContentService *service.ContentService

	mongoClient *mongo.Client
	rdb         *redis.Client
}

// Open connects to MongoDB and Redis and wires the services. Use-case events
// are written as JSON lines to events; nil disables them.
func Open(ctx context.Context, cfg *config.Config, events io.Writer) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Println("Connected to Redis")

	db := mongoClient.Database(cfg.MongoDB)
	a := &App{
		Config:          cfg,
		ProgramRepo:     repository.NewProgramRepo(db),
		StructureRepo:   repository.NewStructureRepo(db),
		TranslationRepo: repository.NewTranslationRepo(db),
		LegacyRepo:      repository.NewLegacyConfigRepo(db),
		ComposedCache:   cache.NewComposedCache(rdb),
		UnlockIndex:     cache.NewUnlockIndex(rdb),
		mongoClient:     mongoClient,
		rdb:             rdb,
	}

	observer := service.NewLogUseCaseObserver(events)
	a.AuthService = service.NewAuthService()
	a.ProgramService = service.NewProgramService(a.ProgramRepo, a.StructureRepo, a.UnlockIndex, cfg.Policy, a.AuthService, observer)
	a.ContentService = service.NewContentService(a.StructureRepo, a.TranslationRepo, a.LegacyRepo, a.ComposedCache, cfg.Policy, observer)
	return a, nil
}

// Close releases the store connections
func (a *App) Close(ctx context.Context) {
	if err := a.rdb.Close(); err != nil {
		log.Printf("Warning: failed to close Redis client: %v", err)
	}
	if err := a.mongoClient.Disconnect(ctx); err != nil {
		log.Printf("Warning: failed to disconnect MongoDB: %v", err)
	}
}
