// Package product provides the repository interface and MongoDB implementation for managing products.
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MikeMC777/productos-api/internal/mongodb"
)

var (
	ErrNotFound = errors.New("product not found")
	// ErrConnection means the store could not be reached and no query ran.
	ErrConnection = errors.New("database connection failed")
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByCodigo(ctx context.Context, codigo int64) (Product, error)
	// FindByNombre matches nombre against pattern as a case-insensitive regular expression.
	FindByNombre(ctx context.Context, pattern string) ([]Product, error)
	// FindByMinPrecio returns products priced at precio or above.
	FindByMinPrecio(ctx context.Context, precio float64) ([]Product, error)
	FindByCategoria(ctx context.Context, categoria string) ([]Product, error)
	// Create stores p and returns it with its _id set.
	Create(ctx context.Context, p Product) (Product, error)
	// Update merges fields into the document with the given codigo.
	Update(ctx context.Context, codigo int64, fields Product) error
	Delete(ctx context.Context, codigo int64) (bool, error)
}

// Connector hands out clients for a single operation.
type Connector interface {
	Acquire(ctx context.Context) (*mongo.Client, error)
	Release(ctx context.Context, c *mongo.Client) error
}

// MongoRepo runs every call as acquire → one query → release.
type MongoRepo struct {
	conns Connector
	db    string
	coll  string
	log   *slog.Logger
}

func NewMongoRepo(conns Connector, db, coll string, log *slog.Logger) *MongoRepo {
	if log == nil {
		log = slog.Default()
	}
	return &MongoRepo{conns: conns, db: db, coll: coll, log: log}
}

// withCollection releases the client on every exit path of fn, panics included.
func (r *MongoRepo) withCollection(ctx context.Context, fn func(*mongo.Collection) error) error {
	client, err := r.conns.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if err := r.conns.Release(ctx, client); err != nil {
			r.log.Warn("failed to release mongodb client", "error", err)
		}
	}()
	return fn(mongodb.Collection(client, r.db, r.coll))
}

func (r *MongoRepo) List(ctx context.Context) ([]Product, error) {
	return r.find(ctx, bson.D{})
}

func (r *MongoRepo) GetByCodigo(ctx context.Context, codigo int64) (Product, error) {
	var p Product
	err := r.withCollection(ctx, func(c *mongo.Collection) error {
		return c.FindOne(ctx, codigoFilter(codigo)).Decode(&p)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find producto %d: %w", codigo, err)
	}
	return p, nil
}

func (r *MongoRepo) FindByNombre(ctx context.Context, pattern string) ([]Product, error) {
	return r.find(ctx, bson.D{{Key: FieldNombre, Value: primitive.Regex{Pattern: pattern, Options: "i"}}})
}

func (r *MongoRepo) FindByMinPrecio(ctx context.Context, precio float64) ([]Product, error) {
	return r.find(ctx, bson.D{{Key: FieldPrecio, Value: bson.D{{Key: "$gte", Value: precio}}}})
}

func (r *MongoRepo) FindByCategoria(ctx context.Context, categoria string) ([]Product, error) {
	return r.find(ctx, bson.D{{Key: FieldCategoria, Value: categoria}})
}

func (r *MongoRepo) Create(ctx context.Context, p Product) (Product, error) {
	doc := p.Clone()
	err := r.withCollection(ctx, func(c *mongo.Collection) error {
		res, err := c.InsertOne(ctx, doc)
		if err != nil {
			return err
		}
		if _, ok := doc[FieldID]; !ok {
			doc[FieldID] = res.InsertedID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert producto: %w", err)
	}
	return doc, nil
}

func (r *MongoRepo) Update(ctx context.Context, codigo int64, fields Product) error {
	err := r.withCollection(ctx, func(c *mongo.Collection) error {
		res, err := c.UpdateOne(ctx, codigoFilter(codigo), bson.D{{Key: "$set", Value: fields}})
		if err != nil {
			return err
		}
		r.log.Debug("producto update", "codigo", codigo, "matched", res.MatchedCount, "modified", res.ModifiedCount)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update producto %d: %w", codigo, err)
	}
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, codigo int64) (bool, error) {
	var deleted int64
	err := r.withCollection(ctx, func(c *mongo.Collection) error {
		res, err := c.DeleteOne(ctx, codigoFilter(codigo))
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete producto %d: %w", codigo, err)
	}
	return deleted > 0, nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.D) ([]Product, error) {
	out := make([]Product, 0)
	err := r.withCollection(ctx, func(c *mongo.Collection) error {
		cur, err := c.Find(ctx, filter)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("find productos: %w", err)
	}
	if out == nil {
		out = make([]Product, 0)
	}
	return out, nil
}

func codigoFilter(codigo int64) bson.D {
	return bson.D{{Key: FieldCodigo, Value: codigo}}
}
