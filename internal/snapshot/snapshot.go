// Package snapshot defines the schema-versioned value objects a
// repository persists and loads, and the reversible binary encoding used
// for the Markov edge statistics blobs.
package snapshot

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SchemaVersion is the current on-disk schema. Bump it, and teach the
// repository to migrate, whenever the record shapes below change.
const SchemaVersion = 1

// Meta carries provenance for one persisted snapshot.
type Meta struct {
	SchemaVersion uint32
	AppVersion    string
	CreatedAtUnix int64
}

// ExeRecord is one row of the exes table.
type ExeRecord struct {
	Path             string
	TotalRunningTime uint64
	LastSeenTime     *uint64
}

// MapRecord is one row of the maps table.
type MapRecord struct {
	Path       string
	Offset     uint64
	Length     uint64
	UpdateTime uint64
}

// ExeMapRecord is one row of the exe_maps incidence table.
type ExeMapRecord struct {
	ExePath   string
	MapPath   string
	MapOffset uint64
	MapLength uint64
}

// MarkovRecord is one row of the markovs table. ExeA/ExeB are stored as
// ordered endpoint paths; the receiver canonicalizes on load.
type MarkovRecord struct {
	ExeA            string
	ExeB            string
	TimeToLeave     [4]float32
	TransitionProb  [4][4]float32
	BothRunningTime uint64
}

// State is the full in-memory model content as of one snapshot.
type State struct {
	ModelTime          uint64
	LastAccountingTime uint64
	Exes               []ExeRecord
	Maps               []MapRecord
	ExeMaps            []ExeMapRecord
	MarkovEdges        []MarkovRecord
}

// Snapshot is the top-level persisted value object.
type Snapshot struct {
	Meta  Meta
	State State
}

// EncodeTimeToLeave produces the reversible byte blob for a [4]float32.
func EncodeTimeToLeave(v [4]float32) []byte {
	buf := make([]byte, 4*4)
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeTimeToLeave reverses EncodeTimeToLeave.
func DecodeTimeToLeave(buf []byte) ([4]float32, error) {
	var out [4]float32
	if len(buf) != 16 {
		return out, fmt.Errorf("snapshot: time_to_leave blob must be 16 bytes, got %d", len(buf))
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// EncodeTransitionProb produces the reversible byte blob for a [4][4]float32.
func EncodeTransitionProb(v [4][4]float32) []byte {
	buf := make([]byte, 4*4*4)
	pos := 0
	for i := range v {
		for j := range v[i] {
			binary.BigEndian.PutUint32(buf[pos:], math.Float32bits(v[i][j]))
			pos += 4
		}
	}
	return buf
}

// DecodeTransitionProb reverses EncodeTransitionProb.
func DecodeTransitionProb(buf []byte) ([4][4]float32, error) {
	var out [4][4]float32
	if len(buf) != 64 {
		return out, fmt.Errorf("snapshot: transition_prob blob must be 64 bytes, got %d", len(buf))
	}
	pos := 0
	for i := range out {
		for j := range out[i] {
			out[i][j] = math.Float32frombits(binary.BigEndian.Uint32(buf[pos:]))
			pos += 4
		}
	}
	return out, nil
}
