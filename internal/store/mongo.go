package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/docgrid/docgrid/internal/docfilter"
)

// Mongo executes queries natively. Substring terms become case-insensitive
// regexes and ranges become $gte/$lt, so paging and counting stay on the
// server. Enum raw indices and BSON dates make native collation agree with
// the field-type taxonomy; _id is the insertion-order tie-break.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials and pings the deployment.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to mongo: %v", ErrUnavailable, err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer disconnectCancel()
		if disconnectErr := client.Disconnect(disconnectCtx); disconnectErr != nil {
			slog.Error("Failed to disconnect from MongoDB after ping failure", "error", disconnectErr)
		}
		return nil, fmt.Errorf("%w: failed to ping mongo: %v", ErrUnavailable, err)
	}

	slog.Info("Database connection established", "db", "MongoDB", "database", database)
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Query(ctx context.Context, q Query) (Result, error) {
	coll := m.db.Collection(q.Collection)

	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Result{}, fmt.Errorf("%w: count failed for %s: %v", ErrUnavailable, q.Collection, err)
	}

	filter := buildFilter(q)
	filtered, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("%w: filtered count failed for %s: %v", ErrUnavailable, q.Collection, err)
	}

	opts := options.Find().SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Sort != nil {
		dir := 1
		if q.Sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.Sort.Field.Name, Value: dir}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: find failed for %s: %v", ErrUnavailable, q.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return Result{}, fmt.Errorf("%w: decode failed for %s: %v", ErrUnavailable, q.Collection, err)
		}
		docs = append(docs, normalizeBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: cursor failed for %s: %v", ErrUnavailable, q.Collection, err)
	}

	return Result{Documents: docs, Filtered: int(filtered), Total: int(total)}, nil
}

func (m *Mongo) Get(ctx context.Context, collection, idField, id string) (Document, error) {
	filter := bson.M{idField: id}
	if idField == "_id" {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			filter = bson.M{"_id": oid}
		}
	}
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, filter).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get failed for %s/%s: %v", ErrUnavailable, collection, id, err)
	}
	return normalizeBSON(raw), nil
}

func (m *Mongo) Insert(ctx context.Context, collection, idField string, docs ...Document) error {
	coll := m.db.Collection(collection)
	for _, d := range docs {
		id, _ := d.Lookup(idField)
		_, err := coll.ReplaceOne(ctx, bson.M{idField: id}, d, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("%w: insert failed for %s: %v", ErrUnavailable, collection, err)
		}
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// buildFilter translates compiled predicates into native operators. The
// global term OR-s across fields; column terms AND together.
func buildFilter(q Query) bson.M {
	var and []bson.M

	if len(q.Global) > 0 {
		var or []bson.M
		for _, p := range q.Global {
			if clause, ok := predicateFilter(p); ok {
				or = append(or, clause)
			}
		}
		if len(or) == 0 {
			// Global term applies to no field: matches nothing.
			or = []bson.M{{"_id": bson.M{"$in": bson.A{}}}}
		}
		and = append(and, bson.M{"$or": or})
	}

	for _, p := range q.Filters {
		if clause, ok := predicateFilter(p); ok {
			and = append(and, clause)
		}
	}

	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0]
	default:
		return bson.M{"$and": and}
	}
}

func predicateFilter(p docfilter.Predicate) (bson.M, bool) {
	name := p.Field.Name
	switch p.Kind {
	case docfilter.KindSubstring:
		return bson.M{name: bson.M{"$regex": regexp.QuoteMeta(p.Term), "$options": "i"}}, true
	case docfilter.KindEquals:
		return bson.M{name: p.Term}, true
	case docfilter.KindNumberRange:
		bounds := bson.M{}
		if p.NumLo != nil {
			bounds["$gte"] = *p.NumLo
		}
		if p.NumHi != nil {
			bounds["$lte"] = *p.NumHi
		}
		return bson.M{name: bounds}, true
	case docfilter.KindTimeRange:
		return bson.M{name: bson.M{"$gte": p.TimeLo, "$lt": p.TimeHi}}, true
	case docfilter.KindIndexIn:
		in := bson.A{}
		for _, idx := range p.Indices {
			in = append(in, idx)
		}
		return bson.M{name: bson.M{"$in": in}}, true
	default:
		return nil, false
	}
}

// normalizeBSON rewrites driver-specific BSON types into the plain Go
// values the renderer and docfilter understand.
func normalizeBSON(m bson.M) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	case bson.M:
		nested := make(map[string]any, len(t))
		for k, e := range t {
			nested[k] = normalizeValue(e)
		}
		return nested
	case bson.A:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = normalizeValue(e)
		}
		return arr
	case int32:
		return int64(t)
	default:
		return v
	}
}
