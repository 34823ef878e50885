package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"pdf-qa-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo queries a MongoDB Atlas Vector Search index. The search index
// (path "vector", filter field "namespace") must be defined on the
// collection in Atlas.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	indexName  string
	dimensions int
}

type mongoChunk struct {
	ID         string         `bson:"_id"`
	Namespace  string         `bson:"namespace"`
	DocumentID string         `bson:"document_id"`
	Index      int            `bson:"chunk_index"`
	Text       string         `bson:"text"`
	Metadata   map[string]any `bson:"metadata,omitempty"`
	Score      float64        `bson:"score,omitempty"`
}

func NewMongo(client *mongo.Client, dbName, collection, indexName string, dimensions int) *Mongo {
	return &Mongo{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
		indexName:  indexName,
		dimensions: dimensions,
	}
}

func (m *Mongo) Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(chunks))
	for _, c := range chunks {
		if err := checkDimensions(c.Embedding, m.dimensions); err != nil {
			return err
		}
		doc := bson.M{
			"namespace":   namespace,
			"document_id": c.DocumentID,
			"chunk_index": c.Index,
			"text":        c.Text,
			"metadata":    c.Metadata,
			"vector":      c.Embedding,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	if _, err := m.collection.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongo bulk upsert: %w", err)
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	if err := checkDimensions(vector, m.dimensions); err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: m.indexName},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: topK * 10},
			{Key: "limit", Value: topK},
			{Key: "filter", Value: bson.D{{Key: "namespace", Value: namespace}}},
		}}},
		{{Key: "$set", Value: bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}}}}},
		{{Key: "$unset", Value: "vector"}},
	}

	cur, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo vector search: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoChunk
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode results: %w", err)
	}

	matches := make([]models.Match, 0, len(docs))
	for _, d := range docs {
		matches = append(matches, models.Match{
			Chunk: models.Chunk{
				ID:         d.ID,
				DocumentID: d.DocumentID,
				Index:      d.Index,
				Text:       d.Text,
				Metadata:   d.Metadata,
			},
			Score: d.Score,
		})
	}
	return matches, nil
}

func (m *Mongo) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	_, err := m.collection.DeleteMany(ctx, bson.M{"namespace": namespace, "document_id": documentID})
	if err != nil {
		return fmt.Errorf("mongo delete document: %w", err)
	}
	return nil
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

// SearchIndexDefinition is the Atlas Vector Search definition the Query
// pipeline expects.
func SearchIndexDefinition(dimensions int) bson.D {
	return bson.D{{Key: "fields", Value: bson.A{
		bson.D{
			{Key: "type", Value: "vector"},
			{Key: "path", Value: "vector"},
			{Key: "numDimensions", Value: dimensions},
			{Key: "similarity", Value: "cosine"},
		},
		bson.D{
			{Key: "type", Value: "filter"},
			{Key: "path", Value: "namespace"},
		},
	}}}
}

// EnsureSearchIndex creates the vector search index on Atlas. An index
// that already exists is left alone.
func (m *Mongo) EnsureSearchIndex(ctx context.Context) error {
	cmd := bson.D{
		{Key: "createSearchIndexes", Value: m.collection.Name()},
		{Key: "indexes", Value: bson.A{bson.D{
			{Key: "name", Value: m.indexName},
			{Key: "type", Value: "vectorSearch"},
			{Key: "definition", Value: SearchIndexDefinition(m.dimensions)},
		}}},
	}
	err := m.collection.Database().RunCommand(ctx, cmd).Err()
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Name == "IndexAlreadyExists" || ce.Code == 68) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create search index %s: %w", m.indexName, err)
	}
	return nil
}
