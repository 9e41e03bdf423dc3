package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sourcingdenis/devfinder/pkg/errors"
)

// Collection names match the hosted backend's tables.
const (
	collTokens   = "user_tokens"
	collEmails   = "enriched_emails"
	collLists    = "lists"
	collSearches = "saved_searches"
)

// Mongo implements all four stores on MongoDB.
type Mongo struct {
	db *mongo.Database
}

// MongoConfig holds connection settings for the Mongo store.
type MongoConfig struct {
	URI      string // e.g. "mongodb://localhost:27017"
	Database string // e.g. "devfinder"
}

// NewMongo connects to MongoDB, verifies the connection, and ensures the
// uniqueness indexes the stores rely on.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	m := &Mongo{db: client.Database(cfg.Database)}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := m.db.Collection(collTokens).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "provider", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return err
	}

	_, err = m.db.Collection(collEmails).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "github_username", Value: 1}},
		Options: unique,
	})
	return err
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

// Get retrieves a token record.
func (m *Mongo) Get(ctx context.Context, userID, provider string) (*TokenRecord, error) {
	var rec TokenRecord
	err := m.db.Collection(collTokens).
		FindOne(ctx, bson.M{"user_id": userID, "provider": provider}).
		Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "no token for %s/%s", userID, provider)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put upserts a token record.
func (m *Mongo) Put(ctx context.Context, rec *TokenRecord) error {
	rec.UpdatedAt = time.Now()
	_, err := m.db.Collection(collTokens).ReplaceOne(ctx,
		bson.M{"user_id": rec.UserID, "provider": rec.Provider},
		rec,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Delete removes a token record.
func (m *Mongo) Delete(ctx context.Context, userID, provider string) error {
	_, err := m.db.Collection(collTokens).DeleteOne(ctx,
		bson.M{"user_id": userID, "provider": provider})
	return err
}

// Emails returns the EmailStore view of the Mongo store.
func (m *Mongo) Emails() EmailStore { return &mongoEmails{db: m.db} }

// Lists returns the ListStore view of the Mongo store.
func (m *Mongo) Lists() ListStore { return &mongoLists{db: m.db} }

// Searches returns the SearchStore view of the Mongo store.
func (m *Mongo) Searches() SearchStore { return &mongoSearches{db: m.db} }

type mongoEmails struct {
	db *mongo.Database
}

func (m *mongoEmails) Get(ctx context.Context, username string) (*EmailRecord, error) {
	var rec EmailRecord
	err := m.db.Collection(collEmails).
		FindOne(ctx, bson.M{"github_username": username}).
		Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "no enriched email for %s", username)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *mongoEmails) Create(ctx context.Context, rec *EmailRecord) error {
	rec.Version = 1
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := m.db.Collection(collEmails).InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(errors.ErrCodeStorageConflict, err, "email row for %s already exists", rec.Username)
	}
	return err
}

func (m *mongoEmails) Update(ctx context.Context, rec *EmailRecord, lastSeenVersion int64) error {
	// CAS: the filter includes the last seen version, so a concurrent
	// writer makes MatchedCount zero instead of clobbering its write.
	res, err := m.db.Collection(collEmails).UpdateOne(ctx,
		bson.M{"github_username": rec.Username, "version": lastSeenVersion},
		bson.M{
			"$set": bson.M{
				"email":       rec.Email,
				"source":      rec.Source,
				"confidence":  rec.Confidence,
				"enriched_by": rec.EnrichedBy,
				"updated_at":  time.Now(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeStorageConflict,
			"version mismatch for %s: last seen %d", rec.Username, lastSeenVersion)
	}
	rec.Version = lastSeenVersion + 1
	return nil
}

type mongoLists struct {
	db *mongo.Database
}

func (m *mongoLists) Create(ctx context.Context, rec *ListRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Profiles == nil {
		rec.Profiles = []ProfileRecord{}
	}
	_, err := m.db.Collection(collLists).InsertOne(ctx, rec)
	return err
}

func (m *mongoLists) Get(ctx context.Context, owner, id string) (*ListRecord, error) {
	var rec ListRecord
	err := m.db.Collection(collLists).
		FindOne(ctx, bson.M{"_id": id, "owner": owner}).
		Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *mongoLists) All(ctx context.Context, owner string) ([]ListRecord, error) {
	cur, err := m.db.Collection(collLists).Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []ListRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *mongoLists) Rename(ctx context.Context, owner, id, name string) error {
	res, err := m.db.Collection(collLists).UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	return nil
}

func (m *mongoLists) Delete(ctx context.Context, owner, id string) error {
	res, err := m.db.Collection(collLists).DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	return nil
}

func (m *mongoLists) AddProfile(ctx context.Context, owner, id string, profile ProfileRecord) error {
	// Drop any stale snapshot for the login first so re-saving refreshes it.
	coll := m.db.Collection(collLists)
	filter := bson.M{"_id": id, "owner": owner}

	if _, err := coll.UpdateOne(ctx, filter,
		bson.M{"$pull": bson.M{"profiles": bson.M{"login": profile.Login}}}); err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"profiles": profile},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	return nil
}

func (m *mongoLists) RemoveProfile(ctx context.Context, owner, id, login string) error {
	res, err := m.db.Collection(collLists).UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{
			"$pull": bson.M{"profiles": bson.M{"login": login}},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeListNotFound, "list %s not found", id)
	}
	return nil
}

type mongoSearches struct {
	db *mongo.Database
}

func (m *mongoSearches) Save(ctx context.Context, rec *SavedSearchRecord) error {
	rec.CreatedAt = time.Now()
	_, err := m.db.Collection(collSearches).InsertOne(ctx, rec)
	return err
}

func (m *mongoSearches) Get(ctx context.Context, owner, id string) (*SavedSearchRecord, error) {
	var rec SavedSearchRecord
	err := m.db.Collection(collSearches).
		FindOne(ctx, bson.M{"_id": id, "owner": owner}).
		Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeSearchNotFound, "saved search %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *mongoSearches) All(ctx context.Context, owner string) ([]SavedSearchRecord, error) {
	cur, err := m.db.Collection(collSearches).Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []SavedSearchRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *mongoSearches) Delete(ctx context.Context, owner, id string) error {
	res, err := m.db.Collection(collSearches).DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeSearchNotFound, "saved search %s not found", id)
	}
	return nil
}

// Interface checks.
var (
	_ TokenStore  = (*Mongo)(nil)
	_ EmailStore  = (*mongoEmails)(nil)
	_ ListStore   = (*mongoLists)(nil)
	_ SearchStore = (*mongoSearches)(nil)
)
