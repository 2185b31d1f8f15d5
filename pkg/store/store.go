package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/muninn/pkg/activation"
	"github.com/orneryd/muninn/pkg/location"
	"github.com/orneryd/muninn/pkg/math/vector"
	"github.com/orneryd/muninn/pkg/retrieval"
	"github.com/orneryd/muninn/pkg/temporal"
)

// Key prefixes. Single bytes keep keys compact and range scans cheap.
const (
	prefixMemory   = byte(0x01)
	prefixEmbed    = byte(0x02)
	prefixHistory  = byte(0x03)
	prefixAssoc    = byte(0x04)
	prefixEpisode  = byte(0x05)
	prefixSession  = byte(0x06)
	prefixLocation = byte(0x07)
	prefixVisual   = byte(0x08)
	keyMeta        = byte(0xF0)
)

// Options configures a Store.
type Options struct {
	// DataDir is the badger directory. Required unless InMemory.
	DataDir string

	// InMemory runs badger without disk persistence. Useful for tests.
	InMemory bool

	// EmbeddingModel tags embeddings written through this store.
	EmbeddingModel string

	// EncryptionPassphrase, when non-empty, seals memory and visual-memory
	// values at rest with AES-256-GCM.
	EncryptionPassphrase string
}

// meta is the per-store metadata kept under keyMeta.
type meta struct {
	Salt  []byte `json:"salt,omitempty"`
	Model string `json:"model,omitempty"`
}

// Store is the badger-backed persistence layer. Safe for concurrent use;
// badger provides the transaction isolation.
type Store struct {
	db    *badger.DB
	model string
	box   *boxer

	mu     sync.Mutex
	closed bool
}

// Open opens (or creates) a store.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", opts.DataDir, err)
	}

	s := &Store{db: db, model: opts.EmbeddingModel}

	m, err := s.loadMeta()
	if err != nil {
		db.Close()
		return nil, err
	}
	if s.model == "" {
		s.model = m.Model
	}

	if opts.EncryptionPassphrase != "" {
		if m.Salt == nil {
			if m.Salt, err = newSalt(); err != nil {
				db.Close()
				return nil, err
			}
		}
		if s.box, err = newBoxer(opts.EncryptionPassphrase, m.Salt); err != nil {
			db.Close()
			return nil, err
		}
	}

	m.Model = s.model
	if err := s.saveMeta(m); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) loadMeta() (*meta, error) {
	m := &meta{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte{keyMeta})
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, m)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading store metadata: %w", err)
	}
	return m, nil
}

func (s *Store) saveMeta(m *meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding store metadata: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte{keyMeta}, data)
	})
}

func key(prefix byte, id string) []byte {
	k := make([]byte, 1+len(id))
	k[0] = prefix
	copy(k[1:], id)
	return k
}

// putJSON marshals v and writes it under prefix+id, sealing when sealed is
// true and encryption is configured.
func (s *Store) putJSON(prefix byte, id string, v any, sealed bool) error {
	if id == "" {
		return ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	if sealed {
		if data, err = s.box.seal(data); err != nil {
			return err
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(prefix, id), data)
	})
}

func (s *Store) getJSON(prefix byte, id string, v any, sealed bool) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefix, id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data := val
			if sealed {
				if data, err = s.box.open(val); err != nil {
					return err
				}
			}
			return json.Unmarshal(data, v)
		})
	})
	return err
}

// scanJSON walks every value under prefix, decoding into fresh T values.
func scanJSON[T any](s *Store, prefix byte, sealed bool, visit func(*T) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				data := val
				if sealed {
					var err error
					if data, err = s.box.open(val); err != nil {
						return err
					}
				}
				var v T
				if err := json.Unmarshal(data, &v); err != nil {
					return err
				}
				return visit(&v)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PutMemory writes a memory and its embedding. Empty IDs are derived from
// content via ContentID. The embedding is normalized to unit length and
// tagged with the store's model before persisting, so cosine scans over
// snapshots work against a consistent scale.
func (s *Store) PutMemory(m *Memory, embedding []float32) error {
	if m.ID == "" {
		m.ID = ContentID(m.Content)
	}
	if err := s.putJSON(prefixMemory, m.ID, m, s.box != nil); err != nil {
		return err
	}
	if embedding != nil {
		blob := encodeEmbedding(s.model, vector.Normalize(embedding))
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key(prefixEmbed, m.ID), blob)
		})
	}
	return nil
}

// GetMemory loads one memory by ID.
func (s *Store) GetMemory(id string) (*Memory, error) {
	var m Memory
	if err := s.getJSON(prefixMemory, id, &m, s.box != nil); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMemory removes a memory, its embedding, and its history.
func (s *Store) DeleteMemory(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range []byte{prefixMemory, prefixEmbed, prefixHistory} {
			if err := txn.Delete(key(p, id)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
}

// RecordAccess appends a retrieval timestamp to a memory's history. The host
// calls this after the engine returns, per the engine's lifecycle contract.
func (s *Store) RecordAccess(id string, atMS int64) error {
	// Serialize the read-modify-write so concurrent appends are not lost.
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []int64
	if err := s.getJSON(prefixHistory, id, &history, false); err != nil && err != ErrNotFound {
		return err
	}
	history = append(history, atMS)
	return s.putJSON(prefixHistory, id, history, false)
}

// History loads a memory's access timestamps.
func (s *Store) History(id string) ([]int64, error) {
	var history []int64
	err := s.getJSON(prefixHistory, id, &history, false)
	if err == ErrNotFound {
		return nil, nil
	}
	return history, err
}

// PutAssociation upserts a directed association edge.
func (s *Store) PutAssociation(a *Association) error {
	if a.Source == "" || a.Target == "" {
		return ErrInvalidID
	}
	return s.putJSON(prefixAssoc, a.Source+"\x00"+a.Target, a, false)
}

// PutEpisode upserts an episode.
func (s *Store) PutEpisode(e *Episode) error {
	return s.putJSON(prefixEpisode, e.ID, e, false)
}

// PutSession upserts a session record.
func (s *Store) PutSession(sess *Session) error {
	return s.putJSON(prefixSession, sess.ID, sess, false)
}

// PutLocation upserts a location record keyed by project and path.
func (s *Store) PutLocation(loc *location.Location) error {
	if loc.Path == "" {
		return ErrInvalidID
	}
	return s.putJSON(prefixLocation, loc.Project+"\x00"+loc.Path, loc, false)
}

// GetLocation loads one location record.
func (s *Store) GetLocation(project, path string) (*location.Location, error) {
	var loc location.Location
	if err := s.getJSON(prefixLocation, project+"\x00"+path, &loc, false); err != nil {
		return nil, err
	}
	return &loc, nil
}

// AllLocations returns every stored location, optionally scoped to a project.
func (s *Store) AllLocations(project string) ([]location.Location, error) {
	var out []location.Location
	err := scanJSON(s, prefixLocation, false, func(l *location.Location) error {
		if project == "" || l.Project == project {
			out = append(out, *l)
		}
		return nil
	})
	return out, err
}

// PutVisual upserts a visual memory and its embedding. Embeddings are
// normalized the same way PutMemory normalizes them.
func (s *Store) PutVisual(v *VisualMemory, embedding []float32) error {
	if v.ID == "" {
		v.ID = ContentID(v.Description)
	}
	if err := s.putJSON(prefixVisual, v.ID, v, s.box != nil); err != nil {
		return err
	}
	if embedding != nil {
		blob := encodeEmbedding(s.model, vector.Normalize(embedding))
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key(prefixEmbed, visualEmbedKey(v.ID)), blob)
		})
	}
	return nil
}

// visualEmbedKey namespaces visual embeddings away from memory embeddings
// under the shared prefix.
func visualEmbedKey(id string) string {
	return "v\x00" + id
}

// Snapshot assembles the engine's input arrays for a project scope.
//
// The returned Input carries everything but the probe and query time, which
// the caller fills in. IDs returns the memory ID behind each corpus index so
// candidates can be mapped back to records.
type Snapshot struct {
	Input *retrieval.Input
	IDs   []string
}

// Snapshot loads every memory in scope plus embeddings, histories,
// associations, and episodes, and wires them into index space. Memories
// whose embedding carries a different model tag than probeModel fail the
// snapshot with ErrModelTag; the engine would reject them anyway, and
// failing here names the offending record.
func (s *Store) Snapshot(ctx context.Context, project, probeModel string) (*Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	var memories []Memory
	err := scanJSON(s, prefixMemory, s.box != nil, func(m *Memory) error {
		if project == "" || m.Project == project {
			memories = append(memories, *m)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("scanning memories: %w", err)
	}

	n := len(memories)
	snap := &Snapshot{
		Input: &retrieval.Input{
			ProbeModel:       probeModel,
			Embeddings:       make([][]float32, n),
			Models:           make([]string, n),
			Histories:        make([][]int64, n),
			EmotionalWeights: make([]float64, n),
			DecayRates:       make([]float64, n),
			WMBoosts:         make([]float64, n),
			Projects:         make([]string, n),
		},
		IDs: make([]string, n),
	}

	index := make(map[string]int, n)
	for i, m := range memories {
		snap.IDs[i] = m.ID
		index[m.ID] = i
		snap.Input.EmotionalWeights[i] = m.EmotionalWeight
		snap.Input.DecayRates[i] = m.DecayRate
		snap.Input.WMBoosts[i] = 1.0
		snap.Input.Projects[i] = m.Project

		model, vec, err := s.embedding(m.ID)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		if probeModel != "" && model != "" && model != probeModel {
			return nil, fmt.Errorf("%w: memory %s tagged %q, probe %q", ErrModelTag, m.ID, model, probeModel)
		}
		snap.Input.Embeddings[i] = vec
		snap.Input.Models[i] = model

		history, err := s.History(m.ID)
		if err != nil {
			return nil, err
		}
		snap.Input.Histories[i] = history
	}

	err = scanJSON(s, prefixAssoc, false, func(a *Association) error {
		src, okS := index[a.Source]
		dst, okT := index[a.Target]
		if okS && okT {
			snap.Input.Associations = append(snap.Input.Associations, activation.Edge{
				Source:   src,
				Target:   dst,
				Forward:  a.Forward,
				Backward: a.Backward,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning associations: %w", err)
	}

	var episodes []temporal.Episode
	err = scanJSON(s, prefixEpisode, false, func(e *Episode) error {
		if project != "" && e.Project != "" && e.Project != project {
			return nil
		}
		ep := temporal.Episode{
			ID:               e.ID,
			Project:          e.Project,
			Open:             e.Open,
			EncodingStrength: e.EncodingStrength,
		}
		for _, ev := range e.Events {
			idx, ok := index[ev.MemoryID]
			if !ok {
				idx = -1 // event outside the scope; keeps positions stable
			}
			ep.Events = append(ep.Events, idx)
		}
		for _, l := range e.Links {
			dir := temporal.Forward
			if l.Direction == string(temporal.Backward) {
				dir = temporal.Backward
			}
			ep.Links = append(ep.Links, temporal.Link{
				Source:    l.Source,
				Target:    l.Target,
				Strength:  l.Strength,
				Direction: dir,
			})
		}
		episodes = append(episodes, ep)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning episodes: %w", err)
	}
	if len(episodes) > 0 {
		snap.Input.Temporal = &temporal.Context{Episodes: episodes}
	}

	return snap, nil
}

func (s *Store) embedding(id string) (string, []float32, error) {
	var model string
	var vec []float32
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefixEmbed, id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			model, vec, err = decodeEmbedding(val)
			return err
		})
	})
	return model, vec, err
}
