// internal/recordstore/mongo.go
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MongoBackend serves collections of one MongoDB database.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
	tracer trace.Tracer
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, database string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoBackend(client, database), nil
}

// NewMongoBackend wraps an already connected client.
func NewMongoBackend(client *mongo.Client, database string) *MongoBackend {
	return &MongoBackend{
		client: client,
		db:     client.Database(database),
		tracer: otel.Tracer("mediatheque/recordstore"),
	}
}

func (b *MongoBackend) Collection(name string) Collection {
	return &mongoCollection{
		name:   name,
		coll:   b.db.Collection(name),
		tracer: b.tracer,
	}
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type mongoCollection struct {
	name   string
	coll   *mongo.Collection
	tracer trace.Tracer
}

func (c *mongoCollection) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("collection", c.name))
	return c.tracer.Start(ctx, "recordstore."+op, trace.WithAttributes(attrs...))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *mongoCollection) List(ctx context.Context, projection []string) ([]Record, error) {
	ctx, span := c.start(ctx, "list")
	defer span.End()

	opts := options.Find()
	if len(projection) > 0 {
		fields := bson.D{}
		for _, f := range projection {
			fields = append(fields, bson.E{Key: f, Value: 1})
		}
		opts.SetProjection(fields)
	}

	cursor, err := c.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fail(span, fmt.Errorf("find %s: %w", c.name, err))
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fail(span, fmt.Errorf("decode %s: %w", c.name, err))
	}

	out := make([]Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, displayID(Record(doc)))
	}
	span.SetAttributes(attribute.Int("records.listed", len(out)))
	return out, nil
}

func (c *mongoCollection) Get(ctx context.Context, id primitive.ObjectID) (Record, error) {
	ctx, span := c.start(ctx, "get", attribute.String("record.id", id.Hex()))
	defer span.End()

	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{IDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fail(span, fmt.Errorf("find %s %s: %w", c.name, id.Hex(), err))
	}
	return displayID(Record(doc)), nil
}

func (c *mongoCollection) Insert(ctx context.Context, fields Record) (primitive.ObjectID, error) {
	ctx, span := c.start(ctx, "insert")
	defer span.End()

	res, err := c.coll.InsertOne(ctx, bson.M(withoutID(fields)))
	if err != nil {
		return primitive.NilObjectID, fail(span, fmt.Errorf("insert into %s: %w", c.name, err))
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fail(span, fmt.Errorf("insert into %s: unexpected id type %T", c.name, res.InsertedID))
	}
	span.SetAttributes(attribute.String("record.id", id.Hex()))
	return id, nil
}

func (c *mongoCollection) UpdatePartial(ctx context.Context, id primitive.ObjectID, fields Record) error {
	ctx, span := c.start(ctx, "update", attribute.String("record.id", id.Hex()))
	defer span.End()

	res, err := c.coll.UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": bson.M(withoutID(fields))})
	if err != nil {
		return fail(span, fmt.Errorf("update %s %s: %w", c.name, id.Hex(), err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, span := c.start(ctx, "delete", attribute.String("record.id", id.Hex()))
	defer span.End()

	res, err := c.coll.DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return fail(span, fmt.Errorf("delete %s %s: %w", c.name, id.Hex(), err))
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	ctx, span := c.start(ctx, "delete_many")
	defer span.End()

	res, err := c.coll.DeleteMany(ctx, bson.M(filter))
	if err != nil {
		return 0, fail(span, fmt.Errorf("delete many from %s: %w", c.name, err))
	}
	span.SetAttributes(attribute.Int64("deleted.count", res.DeletedCount))
	return res.DeletedCount, nil
}

// displayID replaces the raw ObjectID with its display string.
func displayID(doc Record) Record {
	if id, ok := doc[IDField].(primitive.ObjectID); ok {
		doc[IDField] = id.Hex()
	}
	return doc
}
