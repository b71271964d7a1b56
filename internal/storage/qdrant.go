package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/docbase/internal/document"
)

// qdrant requires UUID or integer point IDs, so chunk IDs map to
// deterministic UUIDv5 values. Re-adding the same chunk ID always hits the
// same point.
var pointNamespace = uuid.NameSpaceURL

func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte("docbase:"+chunkID)).String()
}

// QdrantStore backs the vector store with a Qdrant server over gRPC.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
	dims   int
}

// NewQdrantStore connects to Qdrant with health validation and ensures the
// collection exists. It retries the health check with exponential backoff and
// fails fast if the server stays unreachable.
func NewQdrantStore(host string, port, dimensions int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &QdrantStore{
		client: client,
		host:   host,
		port:   port,
		dims:   dimensions,
	}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// healthCheckWithRetry retries with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection and payload indexes if missing.
// Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	// Without keyword indexes filtered deletes and queries degrade badly on
	// large collections.
	for _, field := range []string{
		document.MetaDocumentID,
		document.MetaFilename,
		document.MetaCategory,
	} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("creating index for field %s: %w", field, err)
		}
	}

	return nil
}

func qdrantFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		must = append(must, qdrant.NewMatch(key, value))
	}
	return &qdrant.Filter{Must: must}
}

// Add upserts chunks in batches of 100.
func (s *QdrantStore) Add(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, c := range chunks {
		if s.dims > 0 && len(c.Embedding) != s.dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dims)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, c := range batch {
			payload := map[string]any{
				"chunk_id": c.ID,
				"content":  c.Text,
			}
			for k, v := range c.Metadata {
				payload[k] = v
			}
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(c.ID)),
				Vectors: qdrant.NewVectors(c.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upserting batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// upsertWithRetry performs upsert with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// Query performs vector similarity search, highest similarity first.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, k int, filter Filter) ([]document.ScoredChunk, error) {
	if s.dims > 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         qdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	scored := make([]document.ScoredChunk, 0, len(results))
	for _, result := range results {
		text, metadata := splitPayload(result.Payload)
		scored = append(scored, document.ScoredChunk{
			Text:     text,
			Metadata: metadata,
			Score:    float64(result.Score),
		})
	}
	return scored, nil
}

// Delete removes every chunk matching filter. An empty filter removes all
// chunks.
func (s *QdrantStore) Delete(ctx context.Context, filter Filter) error {
	f := qdrantFilter(filter)
	if f == nil {
		f = &qdrant.Filter{}
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Get scrolls through all chunks matching filter.
func (s *QdrantStore) Get(ctx context.Context, filter Filter) ([]document.Chunk, error) {
	var chunks []document.Chunk
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         qdrantFilter(filter),
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling chunks: %w", err)
		}

		for _, result := range results {
			// The scroll offset is inclusive, so the point used as offset
			// comes back as the first item of the next page.
			if offset != nil && result.Id.GetUuid() == offset.GetUuid() {
				continue
			}
			text, metadata := splitPayload(result.Payload)
			chunks = append(chunks, document.Chunk{
				ID:       result.Payload["chunk_id"].GetStringValue(),
				Text:     text,
				Metadata: metadata,
			})
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return 0, fmt.Errorf("getting collection: %w", err)
	}
	return int(collection.GetPointsCount()), nil
}

// Reset drops and recreates the collection.
func (s *QdrantStore) Reset(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return s.ensureCollection(ctx)
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// splitPayload separates the chunk text from its string metadata fields.
func splitPayload(payload map[string]*qdrant.Value) (string, map[string]string) {
	metadata := make(map[string]string, len(payload))
	var text string
	for key, value := range payload {
		switch key {
		case "content":
			text = value.GetStringValue()
		case "chunk_id":
			// Internal point bookkeeping, not chunk metadata.
		default:
			metadata[key] = value.GetStringValue()
		}
	}
	return text, metadata
}
