package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

const dealsCollection = "deals"

// MongoConfig mirrors the pool/timeout knobs the relational stores'
// PostgresConfig expose, translated to the document-store client.
type MongoConfig struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// DefaultMongoConfig returns sensible defaults.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{ConnectTimeout: 5 * time.Second, QueryTimeout: 5 * time.Second}
}

// MongoStore is the production Sales Store, backed by a "deals"
// collection. Session variables have no row-level-policy
// enforcement point at the document-store layer the way Postgres's
// set_config does; the caller's user id is instead recorded by Close
// as an audit field (updatedBy). Delete removes the document and
// records nothing.
type MongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to uri and pings the deployment, mirroring
// the relational stores' fail-fast construction.
func NewMongoStore(uri, database string, cfg MongoConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("sales: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("sales: ping mongo: %w", err)
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultMongoConfig().QueryTimeout
	}
	return &MongoStore{coll: client.Database(database).Collection(dealsCollection), timeout: timeout}, nil
}

// NewMongoStoreFromCollection wraps an already-connected collection
// with the default query timeout.
func NewMongoStoreFromCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, timeout: DefaultMongoConfig().QueryTimeout}
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

type dealDocument struct {
	ID                string    `bson:"_id"`
	Name              string    `bson:"name"`
	Company           string    `bson:"company"`
	Owner             string    `bson:"owner"`
	Stage             string    `bson:"stage"`
	Amount            float64   `bson:"amount"`
	ContactEmail      string    `bson:"contactEmail"`
	ExpectedCloseDate time.Time `bson:"expectedCloseDate"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedBy         string    `bson:"updatedBy,omitempty"`
}

func (d dealDocument) toDeal() Deal {
	return Deal{
		ID:                d.ID,
		Name:              d.Name,
		Company:           d.Company,
		Owner:             d.Owner,
		Stage:             d.Stage,
		Amount:            d.Amount,
		ContactEmail:      d.ContactEmail,
		ExpectedCloseDate: d.ExpectedCloseDate,
		CreatedAt:         d.CreatedAt,
	}
}

// List fetches up to filter.Limit+1 documents ordered by _id
// descending, the document-store cursor contract: the
// primary object identifier with a `_id < last_id` WHERE shape rather
// than a relational multi-column keyset.
func (s *MongoStore) List(ctx context.Context, _ models.SessionVariables, filter ListFilter) ([]Deal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.Stage != "" {
		query["stage"] = filter.Stage
	}
	if filter.BeforeID != "" {
		query["_id"] = bson.M{"$lt": filter.BeforeID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(filter.Limit + 1))
	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("sales: list deals: %w", err)
	}
	defer cur.Close(ctx)

	var out []Deal
	for cur.Next(ctx) {
		var doc dealDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("sales: decode deal: %w", err)
		}
		out = append(out, doc.toDeal())
	}
	return out, cur.Err()
}

// Get looks up a single deal by id.
func (s *MongoStore) Get(ctx context.Context, _ models.SessionVariables, id string) (Deal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc dealDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("sales: get deal: %w", err)
	}
	return doc.toDeal(), nil
}

// Close transitions a deal to stage ("won" or "lost"), refusing to
// close an already-closed deal. Called only from Execute, after the
// confirmation round-trip; the first invocation performs no backend
// mutation.
func (s *MongoStore) Close(ctx context.Context, vars models.SessionVariables, id, stage string) (Deal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id, "stage": bson.M{"$nin": []string{"won", "lost"}}}
	update := bson.M{"$set": bson.M{"stage": stage, "updatedBy": vars.UserID}}

	var doc dealDocument
	err := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, getErr := s.Get(ctx, vars, id); getErr == nil {
				return Deal{}, ErrAlreadyClosed
			}
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("sales: close deal: %w", err)
	}
	return doc.toDeal(), nil
}

// Delete removes the deal document. Called only from Execute.
func (s *MongoStore) Delete(ctx context.Context, _ models.SessionVariables, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("sales: delete deal: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
