package repository

import (
	"context"
	"fmt"

	"carepath/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranslationRepo persists per-language overlays, at most one per day and language
type TranslationRepo interface {
	Get(ctx context.Context, day int, language string) (*model.DynamicDayTranslation, error)
	ListByDay(ctx context.Context, day int) ([]*model.DynamicDayTranslation, error)
	Save(ctx context.Context, translation *model.DynamicDayTranslation) error
}

type translationRepo struct {
	collection *mongo.Collection
}

// NewTranslationRepo creates a translation repository with indexes
func NewTranslationRepo(db *mongo.Database) TranslationRepo {
	repo := &translationRepo{collection: db.Collection("day_translations")}
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "dayNumber", Value: 1},
		{Key: "language", Value: 1},
	}, true)
	return repo
}

func (r *translationRepo) Get(ctx context.Context, day int, language string) (*model.DynamicDayTranslation, error) {
	var t model.DynamicDayTranslation
	filter := bson.M{"dayNumber": day, "language": language}
	if err := findOne(ctx, r.collection, filter, &t, fmt.Sprintf("%s translation for day %d", language, day)); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *translationRepo) ListByDay(ctx context.Context, day int) ([]*model.DynamicDayTranslation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "language", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"dayNumber": day}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations for day %d: %w", day, err)
	}
	defer cursor.Close(ctx)

	translations := []*model.DynamicDayTranslation{}
	if err := cursor.All(ctx, &translations); err != nil {
		return nil, fmt.Errorf("failed to decode translations for day %d: %w", day, err)
	}
	return translations, nil
}

func (r *translationRepo) Save(ctx context.Context, translation *model.DynamicDayTranslation) error {
	if translation.ID == "" {
		translation.ID = model.TranslationID(translation.DayNumber, translation.Language)
	}
	return saveVersioned(ctx, r.collection, translation.ID, &translation.Version, translation)
}
