// Package mongodb implements the exchange session store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/google/uuid"

	"github.com/sergey-gru/go-cml/pkg/exchange"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements exchange.Store using MongoDB.
type Store struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

// recordDoc is the persisted shape of an exchange.Record.
type recordDoc struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user"`
	State     string    `bson:"state"`
	StartedAt time.Time `bson:"started_at"`
	ActionAt  time.Time `bson:"action_at"`
	Operation string    `bson:"operation,omitempty"`
	FileName  string    `bson:"file_name,omitempty"`
	Report    string    `bson:"report,omitempty"`

	Counters countersDoc `bson:"counters"`
}

type countersDoc struct {
	Uploaded       int `bson:"c_up"`
	UploadedXML    int `bson:"c_up_xml"`
	UploadedImages int `bson:"c_up_img"`

	ImportedClassifiers int `bson:"c_imp_classifier"`
	ImportedCatalogues  int `bson:"c_imp_catalogue"`
	ImportedOfferPacks  int `bson:"c_imp_offers_pack"`
	ImportedDocuments   int `bson:"c_imp_doc"`

	ExportedDocuments int `bson:"c_exp_doc"`
}

func toDoc(rec *exchange.Record) recordDoc {
	return recordDoc{
		ID:        rec.ID,
		User:      rec.User,
		State:     string(rec.State),
		StartedAt: rec.StartedAt,
		ActionAt:  rec.ActionAt,
		Operation: rec.Operation,
		FileName:  rec.FileName,
		Report:    rec.Report,
		Counters:  countersDoc(rec.Counters),
	}
}

func (d recordDoc) record() *exchange.Record {
	return &exchange.Record{
		ID:        d.ID,
		User:      d.User,
		State:     exchange.State(d.State),
		StartedAt: d.StartedAt,
		ActionAt:  d.ActionAt,
		Operation: d.Operation,
		FileName:  d.FileName,
		Report:    d.Report,
		Counters:  exchange.Counters(d.Counters),
	}
}

// NewStore connects to MongoDB and prepares the session collection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	coll := cfg.Collection
	if coll == "" {
		coll = "exchange_sessions"
	}

	s := &Store{
		client:   client,
		sessions: client.Database(cfg.Database).Collection(coll),
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating session indexes: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

var _ exchange.Store = (*Store)(nil)

// OpenNew implements exchange.Store. The abort-and-create pair runs in a
// multi-document transaction when the deployment supports one (replica
// set); a standalone server falls back to sequential updates.
func (s *Store) OpenNew(ctx context.Context, user string) (*exchange.Record, error) {
	now := time.Now()
	doc := recordDoc{
		ID:        uuid.NewString(),
		User:      user,
		State:     string(exchange.StateInit),
		StartedAt: now,
		ActionAt:  now,
	}

	open := func(ctx context.Context) error {
		if err := s.abortOpen(ctx, user, now); err != nil {
			return err
		}
		_, err := s.sessions.InsertOne(ctx, doc)
		return err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("starting MongoDB session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, open(sc)
	})
	if err != nil {
		if !isTransactionUnsupported(err) {
			return nil, fmt.Errorf("opening exchange session: %w", err)
		}
		if err := open(ctx); err != nil {
			return nil, fmt.Errorf("opening exchange session: %w", err)
		}
	}
	return doc.record(), nil
}

// abortOpen moves every StateInit record to StateAbort, attributing the
// eviction to user.
func (s *Store) abortOpen(ctx context.Context, user string, now time.Time) error {
	cur, err := s.sessions.Find(ctx, bson.M{"state": exchange.StateInit})
	if err != nil {
		return fmt.Errorf("finding open sessions: %w", err)
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("reading open sessions: %w", err)
	}
	for _, d := range docs {
		_, err := s.sessions.UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{
			"$set": bson.M{
				"state":     exchange.StateAbort,
				"report":    exchange.AbortReportFor(d.User, user),
				"action_at": now,
			},
		})
		if err != nil {
			return fmt.Errorf("aborting session %s: %w", d.ID, err)
		}
	}
	return nil
}

// FindOpen implements exchange.Store.
func (s *Store) FindOpen(ctx context.Context, user string) (*exchange.Record, error) {
	var doc recordDoc
	err := s.sessions.FindOne(ctx, bson.M{"state": exchange.StateInit, "user": user}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, exchange.ErrNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("finding open session: %w", err)
	}
	return doc.record(), nil
}

// SetOperation implements exchange.Store.
func (s *Store) SetOperation(ctx context.Context, id, operation, fileName string) error {
	res, err := s.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"operation": operation,
			"file_name": fileName,
			"action_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return exchange.ErrNotStarted
	}
	return nil
}

// Finish implements exchange.Store.
func (s *Store) Finish(ctx context.Context, rec *exchange.Record) error {
	res, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": rec.ID}, toDoc(rec))
	if err != nil {
		return fmt.Errorf("flushing session %s: %w", rec.ID, err)
	}
	if res.MatchedCount == 0 {
		return exchange.ErrNotStarted
	}
	return nil
}

func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// IllegalOperation: transaction numbers require a replica set
		return cmdErr.Code == 20
	}
	return false
}
