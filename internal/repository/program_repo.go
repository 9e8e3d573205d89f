package repository

import (
	"context"
	"fmt"

	"carepath/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProgramRepo persists participant programs as whole documents
type ProgramRepo interface {
	Get(ctx context.Context, id string) (*model.ParticipantProgram, error)
	// Save inserts a version 0 program and otherwise replaces the stored
	// document only if its version is unchanged.
	Save(ctx context.Context, program *model.ParticipantProgram) error
	ListEscalated(ctx context.Context) ([]*model.ParticipantProgram, error)
}

type programRepo struct {
	collection *mongo.Collection
}

// NewProgramRepo creates a program repository with indexes
func NewProgramRepo(db *mongo.Database) ProgramRepo {
	repo := &programRepo{collection: db.Collection("participant_programs")}
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "escalationTriggered", Value: 1},
		{Key: "updatedAt", Value: -1},
	}, false)
	return repo
}

func (r *programRepo) Get(ctx context.Context, id string) (*model.ParticipantProgram, error) {
	var p model.ParticipantProgram
	if err := findOne(ctx, r.collection, bson.M{"_id": id}, &p, fmt.Sprintf("program %s", id)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *programRepo) Save(ctx context.Context, program *model.ParticipantProgram) error {
	return saveVersioned(ctx, r.collection, program.ID, &program.Version, program)
}

func (r *programRepo) ListEscalated(ctx context.Context) ([]*model.ParticipantProgram, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"escalationTriggered": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalated programs: %w", err)
	}
	defer cursor.Close(ctx)

	programs := []*model.ParticipantProgram{}
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, fmt.Errorf("failed to decode escalated programs: %w", err)
	}
	return programs, nil
}
