package downloads

import (
	"demtiles/internal/slippy"
)

// OutcomeKind classifies what happened to a single tile fetch.
type OutcomeKind int

const (
	// OutcomeDownloaded means a non-empty payload was fetched and persisted.
	OutcomeDownloaded OutcomeKind = iota
	// OutcomeEmpty means the request succeeded but the body was zero bytes.
	// The tile legitimately may not exist at that coordinate, so this counts
	// as neither success nor failure.
	OutcomeEmpty
	// OutcomeFailed means transport failure, a non-success status, or a
	// persistence failure on the local side.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TileOutcome is the per-tile result of one fetch attempt. Produced once per
// tile per run and consumed immediately; never persisted itself.
type TileOutcome struct {
	Tile  slippy.Tile
	Kind  OutcomeKind
	Bytes int   // payload size when Kind == OutcomeDownloaded
	Err   error // cause when Kind == OutcomeFailed
}

// DownloadProgress reports one tile's position and classification to an
// external progress sink. Observability only, not required for correctness.
type DownloadProgress struct {
	Index   int // 1-based position within the run
	Total   int
	Outcome TileOutcome
}

// RunStats accumulates the final tally of one run. Empty is surfaced as its
// own counter so that Downloaded+Failed+Empty always equals tiles attempted.
type RunStats struct {
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
	Empty      int `json:"empty"`
}

// Attempted returns the total number of tiles classified so far.
func (s RunStats) Attempted() int {
	return s.Downloaded + s.Failed + s.Empty
}

// Record folds one outcome into the counters.
func (s *RunStats) Record(kind OutcomeKind) {
	switch kind {
	case OutcomeDownloaded:
		s.Downloaded++
	case OutcomeEmpty:
		s.Empty++
	case OutcomeFailed:
		s.Failed++
	}
}
