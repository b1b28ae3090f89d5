package main

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
	"github.com/anonto42/photowall/backend/internal/services"
	"github.com/anonto42/photowall/backend/pkg/config"
	"github.com/anonto42/photowall/backend/pkg/firebase"
	"github.com/anonto42/photowall/backend/pkg/logger"
	"github.com/anonto42/photowall/backend/pkg/storage"
)

type purger interface {
	PurgeRejected(ctx context.Context, now time.Time) (services.PurgeReport, error)
	Preview(ctx context.Context, now time.Time) (services.PurgeReport, error)
}

type roleSetter interface {
	SetRole(email, role string) (*models.User, error)
}

// commandContext opens what a command needs on demand. Tests swap the
// openers for in-memory versions.
type commandContext struct {
	now           func() time.Time
	openRetention func(ctx context.Context) (purger, func(), error)
	openUsers     func(ctx context.Context) (roleSetter, func(), error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		now:           time.Now,
		openRetention: connectRetention,
		openUsers:     connectUsers,
	}
}

func connectRetention(ctx context.Context) (purger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg)

	db, err := config.InitDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var fb *firebase.App
	if cfg.StorageBackend == config.StorageFirebase {
		fb, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			db.CloseDB()
			return nil, nil, fmt.Errorf("initialize firebase: %w", err)
		}
	}
	store, err := storage.New(ctx, cfg, fb, log)
	if err != nil {
		db.CloseDB()
		return nil, nil, err
	}

	rejected := repositories.NewMongoRejectedRepository(db.Mongo.Database(cfg.MongoDatabase))
	return services.NewRetentionService(rejected, store, cfg.RejectedRetention, log), db.CloseDB, nil
}

func connectUsers(ctx context.Context) (roleSetter, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.InitDB(cfg, logger.New(cfg))
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewPostgresUserRepository(db.Postgres), db.CloseDB, nil
}
