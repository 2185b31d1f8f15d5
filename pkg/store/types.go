// Package store provides the badger-backed persistence layer that feeds the
// Muninn retrieval engine.
//
// The engine itself is pure computation over parallel arrays; this package
// owns the durable side: memories, embeddings (float32 blobs with a model
// tag), associations, access histories, episodes, sessions, locations, and
// visual memories. Snapshot() assembles the engine's input arrays for a
// project scope in one pass.
//
// Key Structure (single-byte prefixes, teacher of the layout: BadgerDB):
//   - 0x01 + memoryID  -> JSON(Memory)
//   - 0x02 + memoryID  -> embedding blob (model tag + float32 LE)
//   - 0x03 + memoryID  -> JSON([]int64) access history, ms since epoch
//   - 0x04 + assocID   -> JSON(Association)
//   - 0x05 + episodeID -> JSON(Episode)
//   - 0x06 + sessionID -> JSON(Session)
//   - 0x07 + project + 0x00 + path -> JSON(location.Location)
//   - 0x08 + visualID  -> JSON(VisualMemory)
//   - 0xF0             -> store metadata (encryption salt, model tag)
package store

import (
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"
)

// Common errors.
var (
	ErrNotFound     = errors.New("store: not found")
	ErrClosed       = errors.New("store: closed")
	ErrInvalidID    = errors.New("store: invalid id")
	ErrModelTag     = errors.New("store: embedding model tag mismatch")
	ErrNoEncryptKey = errors.New("store: encryption enabled without key")
)

// ConsolidationState is the lifecycle label carried on each memory. The
// retrieval engine never interprets it; consolidation is a host process.
type ConsolidationState string

const (
	StateFresh           ConsolidationState = "fresh"
	StateConsolidating   ConsolidationState = "consolidating"
	StateConsolidated    ConsolidationState = "consolidated"
	StateReconsolidating ConsolidationState = "reconsolidating"
)

// Memory is one stored textual memory.
type Memory struct {
	ID               string             `json:"id"`
	Content          string             `json:"content"`
	Project          string             `json:"project,omitempty"`
	CreatedAtMS      int64              `json:"created_at_ms"`
	EmotionalWeight  float64            `json:"emotional_weight"`
	EncodingStrength float64            `json:"encoding_strength"`
	DecayRate        float64            `json:"decay_rate"`
	State            ConsolidationState `json:"state"`
}

// Association is a directed, weighted edge between two memories.
type Association struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Forward  float64 `json:"forward"`
	Backward float64 `json:"backward"`
}

// EpisodeEvent references a memory at a position inside an episode.
type EpisodeEvent struct {
	MemoryID string `json:"memory_id"`
	Position int    `json:"position"`
}

// TemporalLink connects two event positions inside an episode.
type TemporalLink struct {
	Source    int     `json:"source"`
	Target    int     `json:"target"`
	Strength  float64 `json:"strength"`
	Direction string  `json:"direction"` // "forward" or "backward"
}

// Episode is an ordered group of memories with temporal links.
type Episode struct {
	ID               string         `json:"id"`
	Project          string         `json:"project,omitempty"`
	Open             bool           `json:"open"`
	EncodingStrength float64        `json:"encoding_strength"`
	Events           []EpisodeEvent `json:"events"`
	Links            []TemporalLink `json:"links"`
}

// Session is a persisted idle-bounded activity window.
type Session struct {
	ID        string   `json:"id"`
	StartedMS int64    `json:"started_ms"`
	LastMS    int64    `json:"last_ms"`
	MemberIDs []string `json:"member_ids"`
}

// VisualMemory is a stored semantic description of media.
type VisualMemory struct {
	ID           string  `json:"id"`
	Description  string  `json:"description"`
	MediaPath    string  `json:"media_path,omitempty"`
	Project      string  `json:"project,omitempty"`
	CreatedAtMS  int64   `json:"created_at_ms"`
	Significance float64 `json:"significance"`
	Arousal      float64 `json:"arousal"`
	Valence      float64 `json:"valence"`
}

// ContentID derives a stable memory ID from content by BLAKE3 hash. Storing
// the same text twice yields the same ID, which is how ingestion dedupes.
func ContentID(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
