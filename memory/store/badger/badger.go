// Package badger provides a persistent on-disk store backed by BadgerDB.
// Similarity search is brute force over the owner's keyspace, which is fine
// for the per-owner pattern counts this SDK targets.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/neuraloverlay/apex-go-sdk/memory"
)

// Store persists memories in BadgerDB under keys "pat/<owner>/<id>".
type Store struct {
	db *badgerdb.DB
}

// New opens (or creates) a badger database at path.
func New(path string) (*Store, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// storedPattern is the on-disk JSON representation of a MemoryPattern.
type storedPattern struct {
	ID              string                 `json:"id"`
	OwnerID         string                 `json:"owner_id"`
	TaskID          string                 `json:"task_id"`
	CreatedAt       time.Time              `json:"created_at"`
	Embedding       []float32              `json:"embedding"`
	TaskKind        string                 `json:"kind"`
	Brief           string                 `json:"brief"`
	Draft           string                 `json:"content"`
	Score           float64                `json:"score"`
	CritiqueSummary string                 `json:"critique"`
	Success         bool                   `json:"success"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func patternKey(ownerID, id string) []byte {
	return []byte(fmt.Sprintf("pat/%s/%s", ownerID, id))
}

func ownerPrefix(ownerID string) []byte {
	return []byte(fmt.Sprintf("pat/%s/", ownerID))
}

// Store saves a memory with its embedding.
func (s *Store) Store(ctx context.Context, mem memory.Memory) error {
	pattern, ok := mem.(*memory.MemoryPattern)
	if !ok {
		return fmt.Errorf("badger store only supports pattern memories, got %s", mem.Type())
	}

	sp := storedPattern{
		ID:              pattern.ID(),
		OwnerID:         pattern.OwnerID(),
		TaskID:          pattern.TaskID(),
		CreatedAt:       pattern.CreatedAt(),
		Embedding:       pattern.Embedding(),
		TaskKind:        pattern.TaskKind,
		Brief:           pattern.Brief,
		Draft:           pattern.Draft,
		Score:           pattern.Score,
		CritiqueSummary: pattern.CritiqueSummary,
		Success:         pattern.Success,
		Metadata:        pattern.Metadata(),
	}

	data, err := json.Marshal(sp)
	if err != nil {
		return fmt.Errorf("marshal pattern: %w", err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(patternKey(sp.OwnerID, sp.ID), data)
	})
}

// Query retrieves memories by vector similarity, highest first.
// All patterns under the owner's prefix are scanned and scored.
func (s *Store) Query(ctx context.Context, ownerID string, embedding []float32, limit int) ([]memory.Memory, error) {
	type scored struct {
		mem   memory.Memory
		score float64
	}

	var candidates []scored
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		prefix := ownerPrefix(ownerID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(val []byte) error {
				var sp storedPattern
				if err := json.Unmarshal(val, &sp); err != nil {
					return nil // Skip corrupt entries
				}
				candidates = append(candidates, scored{
					mem:   sp.toPattern(),
					score: memory.CosineSimilarity(embedding, sp.Embedding),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger query: %w", err)
	}

	// Sort descending by similarity
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	memories := make([]memory.Memory, len(candidates))
	for i, c := range candidates {
		memories[i] = c.mem
	}
	return memories, nil
}

// Get retrieves a specific memory by ID and owner.
func (s *Store) Get(ctx context.Context, ownerID string, memoryID string) (memory.Memory, error) {
	var mem memory.Memory
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(patternKey(ownerID, memoryID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var sp storedPattern
			if err := json.Unmarshal(val, &sp); err != nil {
				return fmt.Errorf("unmarshal pattern: %w", err)
			}
			mem = sp.toPattern()
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, fmt.Errorf("memory %s not found for owner %s", memoryID, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return mem, nil
}

// Delete removes a memory permanently.
func (s *Store) Delete(ctx context.Context, ownerID string, memoryID string) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(patternKey(ownerID, memoryID))
	})
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (sp *storedPattern) toPattern() *memory.MemoryPattern {
	return memory.NewMemoryPatternFromStorage(
		sp.ID,
		sp.OwnerID,
		sp.TaskID,
		sp.CreatedAt,
		sp.Embedding,
		sp.TaskKind,
		sp.Brief,
		sp.Draft,
		sp.Score,
		sp.CritiqueSummary,
		sp.Success,
		sp.Metadata,
	)
}
