// Package vectorstore pushes face embeddings into Qdrant and queries them
// back by similarity.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

type Config struct {
	Host       string
	Port       int
	ApiKey     string
	UseTLS     bool
	Collection string
}

// Store wraps a Qdrant collection of face embeddings.
type Store struct {
	client     *qdrant.Client
	collection string
}

func New(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// EnsureCollection creates the cosine-distance collection if it does not
// exist yet.
func (s *Store) EnsureCollection(ctx context.Context, dim uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Point is one face embedding ready for upsert.
type Point struct {
	FaceID      string
	SourceImage string
	Vector      []float32
}

func (s *Store) Upsert(ctx context.Context, points []Point) error {
	upsert := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		upsert = append(upsert, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"face_id":      p.FaceID,
				"source_image": p.SourceImage,
			}),
		})
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         upsert,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), s.collection, err)
	}
	return nil
}

// Match is one similarity search hit.
type Match struct {
	FaceID      string
	SourceImage string
	Score       float32
}

func (s *Store) Search(ctx context.Context, vector []float32, limit uint64) ([]Match, error) {
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.collection, err)
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		match := Match{Score: hit.Score}
		if v, ok := hit.Payload["face_id"]; ok {
			match.FaceID = v.GetStringValue()
		}
		if v, ok := hit.Payload["source_image"]; ok {
			match.SourceImage = v.GetStringValue()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
