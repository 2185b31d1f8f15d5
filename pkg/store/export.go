// Package store - JSON export/import of a complete store.
//
// The export format is a single self-describing JSON document carrying every
// record class plus the embeddings and access histories that hang off them.
// It is the interchange format between hosts (and the backing for the CLI's
// `store export` / `store import` commands): exporting from one store and
// importing into another reproduces the same snapshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/orneryd/muninn/pkg/location"
)

// ExportedMemory bundles a memory with its embedding and access history.
type ExportedMemory struct {
	Memory    Memory    `json:"memory"`
	Embedding []float32 `json:"embedding,omitempty"`
	History   []int64   `json:"history,omitempty"`
}

// ExportedVisual bundles a visual memory with its embedding.
type ExportedVisual struct {
	Visual    VisualMemory `json:"visual"`
	Embedding []float32    `json:"embedding,omitempty"`
}

// Export is the interchange document for a full store.
type Export struct {
	Model        string              `json:"model,omitempty"`
	Memories     []ExportedMemory    `json:"memories,omitempty"`
	Associations []Association       `json:"associations,omitempty"`
	Episodes     []Episode           `json:"episodes,omitempty"`
	Sessions     []Session           `json:"sessions,omitempty"`
	Locations    []location.Location `json:"locations,omitempty"`
	Visuals      []ExportedVisual    `json:"visuals,omitempty"`
}

// Export walks the whole store into an interchange document. Sealed values
// are decrypted on the way out; the export itself is plaintext, so treat the
// result with the same care as the passphrase.
func (s *Store) Export(ctx context.Context) (*Export, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	out := &Export{Model: s.model}

	err := scanJSON(s, prefixMemory, s.box != nil, func(m *Memory) error {
		em := ExportedMemory{Memory: *m}
		if _, vec, err := s.embedding(m.ID); err == nil {
			em.Embedding = vec
		} else if err != ErrNotFound {
			return err
		}
		history, err := s.History(m.ID)
		if err != nil {
			return err
		}
		em.History = history
		out.Memories = append(out.Memories, em)
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("exporting memories: %w", err)
	}

	err = scanJSON(s, prefixAssoc, false, func(a *Association) error {
		out.Associations = append(out.Associations, *a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting associations: %w", err)
	}

	err = scanJSON(s, prefixEpisode, false, func(e *Episode) error {
		out.Episodes = append(out.Episodes, *e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting episodes: %w", err)
	}

	err = scanJSON(s, prefixSession, false, func(sess *Session) error {
		out.Sessions = append(out.Sessions, *sess)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting sessions: %w", err)
	}

	err = scanJSON(s, prefixLocation, false, func(l *location.Location) error {
		out.Locations = append(out.Locations, *l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("exporting locations: %w", err)
	}

	err = scanJSON(s, prefixVisual, s.box != nil, func(v *VisualMemory) error {
		ev := ExportedVisual{Visual: *v}
		if _, vec, err := s.embedding(visualEmbedKey(v.ID)); err == nil {
			ev.Embedding = vec
		} else if err != ErrNotFound {
			return err
		}
		out.Visuals = append(out.Visuals, ev)
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("exporting visuals: %w", err)
	}

	return out, nil
}

// Import loads an interchange document into the store, upserting record by
// record. Embeddings are re-tagged with the importing store's model when the
// export carries no model of its own; a conflicting model is an ErrModelTag.
func (s *Store) Import(ctx context.Context, ex *Export) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	if ex.Model != "" && s.model != "" && ex.Model != s.model {
		return fmt.Errorf("%w: export tagged %q, store tagged %q", ErrModelTag, ex.Model, s.model)
	}

	for i := range ex.Memories {
		em := &ex.Memories[i]
		if err := s.PutMemory(&em.Memory, em.Embedding); err != nil {
			return fmt.Errorf("importing memory %s: %w", em.Memory.ID, err)
		}
		if em.History != nil {
			if err := s.putJSON(prefixHistory, em.Memory.ID, em.History, false); err != nil {
				return fmt.Errorf("importing history for %s: %w", em.Memory.ID, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	for i := range ex.Associations {
		if err := s.PutAssociation(&ex.Associations[i]); err != nil {
			return fmt.Errorf("importing association: %w", err)
		}
	}
	for i := range ex.Episodes {
		if err := s.PutEpisode(&ex.Episodes[i]); err != nil {
			return fmt.Errorf("importing episode %s: %w", ex.Episodes[i].ID, err)
		}
	}
	for i := range ex.Sessions {
		if err := s.PutSession(&ex.Sessions[i]); err != nil {
			return fmt.Errorf("importing session %s: %w", ex.Sessions[i].ID, err)
		}
	}
	for i := range ex.Locations {
		if err := s.PutLocation(&ex.Locations[i]); err != nil {
			return fmt.Errorf("importing location %s: %w", ex.Locations[i].Path, err)
		}
	}
	for i := range ex.Visuals {
		ev := &ex.Visuals[i]
		if err := s.PutVisual(&ev.Visual, ev.Embedding); err != nil {
			return fmt.Errorf("importing visual %s: %w", ev.Visual.ID, err)
		}
	}

	return nil
}

// ExportJSON writes the interchange document to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	ex, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ex)
}

// ImportJSON reads an interchange document from r and loads it.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) error {
	var ex Export
	if err := json.NewDecoder(r).Decode(&ex); err != nil {
		return fmt.Errorf("decoding export: %w", err)
	}
	return s.Import(ctx, &ex)
}
