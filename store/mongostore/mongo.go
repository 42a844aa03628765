// Package mongostore implements store.Store on MongoDB, one database per tenant
// and one MongoDB collection per store collection.
package mongostore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/etnz/fintrack/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is a MongoDB backed store.Store.
//
// Documents are expected to carry a string "_id" so that no ObjectID leaks
// into the JSON documents returned by Find.
// Replace deletes then inserts in one transaction when the server is a
// replica set or a sharded cluster. On a standalone server it is not atomic:
// a failure in between leaves the collection without the replaced documents
// until the next run.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

var _ store.Store = (*Store)(nil)

// Open connects to uri and uses the database named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	transactions, err := supportsTransactions(ctx, client)
	if err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Store{client: client, db: client.Database(database), transactions: transactions}, nil
}

// supportsTransactions reports whether the server is a replica set member or
// a mongos router.
func supportsTransactions(ctx context.Context, client *mongo.Client) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false, fmt.Errorf("failed to describe MongoDB server: %w", err)
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}

// filter translates q into a MongoDB filter document.
func filter(q store.Query) bson.D {
	var conds bson.A
	for _, r := range q.Ranges {
		bounds := bson.D{{Key: "$type", Value: "string"}}
		if r.From != "" {
			bounds = append(bounds, bson.E{Key: "$gte", Value: r.From})
		}
		if r.To != "" {
			bounds = append(bounds, bson.E{Key: "$lte", Value: r.To})
		}
		conds = append(conds, bson.D{{Key: r.Field, Value: bounds}})
	}
	for _, in := range q.Ins {
		values := in.Values
		if values == nil {
			values = []string{}
		}
		conds = append(conds, bson.D{{Key: in.Field, Value: bson.D{{Key: "$in", Value: values}}}})
	}
	if len(conds) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: conds}}
}

func (s *Store) Find(ctx context.Context, collection string, q store.Query) ([]json.RawMessage, error) {
	cur, err := s.db.Collection(collection).Find(ctx, filter(q))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []json.RawMessage
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		raw, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s document: %w", collection, err)
		}
		docs = append(docs, raw)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Insert(ctx context.Context, collection string, docs ...json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}
	values := make([]any, 0, len(docs))
	for _, raw := range docs {
		var doc bson.D
		if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
			return fmt.Errorf("document is not a json object: %w", err)
		}
		values = append(values, doc)
	}
	if _, err := s.db.Collection(collection).InsertMany(ctx, values); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, q store.Query) (int, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, filter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) Replace(ctx context.Context, collection string, q store.Query, docs ...json.RawMessage) error {
	if !s.transactions {
		return s.replace(ctx, collection, q, docs)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start MongoDB session: %w", err)
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, s.replace(sc, collection, q, docs)
	})
	return err
}

func (s *Store) replace(ctx context.Context, collection string, q store.Query, docs []json.RawMessage) error {
	if _, err := s.Delete(ctx, collection, q); err != nil {
		return err
	}
	return s.Insert(ctx, collection, docs...)
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }
