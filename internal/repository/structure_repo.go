package repository

import (
	"context"
	"fmt"

	"carepath/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StructureRepo persists the authoritative day structures
type StructureRepo interface {
	Get(ctx context.Context, day int) (*model.DynamicDayStructure, error)
	List(ctx context.Context) ([]*model.DynamicDayStructure, error)
	Save(ctx context.Context, structure *model.DynamicDayStructure) error
}

type structureRepo struct {
	collection *mongo.Collection
}

// NewStructureRepo creates a structure repository with indexes
func NewStructureRepo(db *mongo.Database) StructureRepo {
	repo := &structureRepo{collection: db.Collection("day_structures")}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "dayNumber", Value: 1}}, true)
	return repo
}

func (r *structureRepo) Get(ctx context.Context, day int) (*model.DynamicDayStructure, error) {
	var s model.DynamicDayStructure
	if err := findOne(ctx, r.collection, bson.M{"dayNumber": day}, &s, fmt.Sprintf("structure for day %d", day)); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *structureRepo) List(ctx context.Context) ([]*model.DynamicDayStructure, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list structures: %w", err)
	}
	defer cursor.Close(ctx)

	structures := []*model.DynamicDayStructure{}
	if err := cursor.All(ctx, &structures); err != nil {
		return nil, fmt.Errorf("failed to decode structures: %w", err)
	}
	return structures, nil
}

func (r *structureRepo) Save(ctx context.Context, structure *model.DynamicDayStructure) error {
	if structure.ID == "" {
		structure.ID = model.StructureID(structure.DayNumber)
	}
	return saveVersioned(ctx, r.collection, structure.ID, &structure.Version, structure)
}
