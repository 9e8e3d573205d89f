package repository

import (
	"context"
	"fmt"

	"carepath/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LegacyConfigRepo stores the derived all-languages day record. Records are
// only ever written by the legacy sync.
type LegacyConfigRepo interface {
	Get(ctx context.Context, day int) (*model.LegacyDayConfig, error)
	Save(ctx context.Context, config *model.LegacyDayConfig) error
}

type legacyConfigRepo struct {
	collection *mongo.Collection
}

// NewLegacyConfigRepo creates a legacy day config repository
func NewLegacyConfigRepo(db *mongo.Database) LegacyConfigRepo {
	repo := &legacyConfigRepo{collection: db.Collection("day_configs")}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "dayNumber", Value: 1}}, true)
	return repo
}

func (r *legacyConfigRepo) Get(ctx context.Context, day int) (*model.LegacyDayConfig, error) {
	var c model.LegacyDayConfig
	if err := findOne(ctx, r.collection, bson.M{"dayNumber": day}, &c, fmt.Sprintf("legacy config for day %d", day)); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *legacyConfigRepo) Save(ctx context.Context, config *model.LegacyDayConfig) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": config.ID}, config, opts); err != nil {
		return fmt.Errorf("failed to save legacy config for day %d: %w", config.DayNumber, err)
	}
	return nil
}
