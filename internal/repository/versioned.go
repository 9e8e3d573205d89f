package repository

import (
	"context"
	"fmt"
	"log"

	"carepath/internal/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// saveVersioned writes doc under optimistic locking. A zero version inserts;
// otherwise the stored document must still carry *version. On success
// *version is advanced, on any failure it is left as it was.
func saveVersioned(ctx context.Context, coll *mongo.Collection, id string, version *int64, doc interface{}) error {
	expected := *version
	*version = expected + 1

	if expected == 0 {
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			*version = expected
			if mongo.IsDuplicateKeyError(err) {
				return apperr.ConcurrencyConflict("%s %s was created concurrently", coll.Name(), id)
			}
			return fmt.Errorf("failed to insert %s %s: %w", coll.Name(), id, err)
		}
		return nil
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, doc)
	if err != nil {
		*version = expected
		return fmt.Errorf("failed to save %s %s: %w", coll.Name(), id, err)
	}
	if res.MatchedCount == 0 {
		*version = expected
		return apperr.ConcurrencyConflict("%s %s changed since version %d", coll.Name(), id, expected)
	}
	return nil
}

// findOne decodes the single document matching filter into out.
func findOne(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}, what string) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return apperr.NotFound("not_found", "%s not found", what)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", what, err)
	}
	return nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", coll.Name(), err)
	}
}
