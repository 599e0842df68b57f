// Package matches holds extracted match records for the run.
package matches

import (
	"encoding/json"
	"sync"
	"time"
)

// TeamsPerAlliance is the fixed roster size.
const TeamsPerAlliance = 3

// Record is one extracted match.
type Record struct {
	Type       string
	Number     int
	Red        [TeamsPerAlliance]int
	Blue       [TeamsPerAlliance]int
	FrameIndex int
	Timestamp  time.Duration // position in the recording
	Source     string
	DetectedAt time.Time
}

type recordJSON struct {
	Type       string                   `json:"type"`
	Number     int                      `json:"number"`
	Teams      [2][TeamsPerAlliance]int `json:"teams"`
	FrameIndex int                      `json:"frame_index"`
	Timestamp  float64                  `json:"timestamp"`
	Source     string                   `json:"source,omitempty"`
	DetectedAt time.Time                `json:"detected_at"`
}

// MarshalJSON writes the record with teams as [[red...], [blue...]] and the
// timestamp in seconds.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Type:       r.Type,
		Number:     r.Number,
		Teams:      [2][TeamsPerAlliance]int{r.Red, r.Blue},
		FrameIndex: r.FrameIndex,
		Timestamp:  r.Timestamp.Seconds(),
		Source:     r.Source,
		DetectedAt: r.DetectedAt,
	})
}

// UnmarshalJSON reads the MarshalJSON form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var v recordJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Record{
		Type:       v.Type,
		Number:     v.Number,
		Red:        v.Teams[0],
		Blue:       v.Teams[1],
		FrameIndex: v.FrameIndex,
		Timestamp:  time.Duration(v.Timestamp * float64(time.Second)),
		Source:     v.Source,
		DetectedAt: v.DetectedAt,
	}
	return nil
}

// Store is an append-only record list that also fans new records out on a
// channel.
type Store struct {
	mu       sync.RWMutex
	records  []Record
	eventsCh chan Record
}

// NewStore creates a store whose event channel buffers eventBuffer records.
func NewStore(eventBuffer int) *Store {
	return &Store{eventsCh: make(chan Record, eventBuffer)}
}

// Add appends a record and emits it.
func (s *Store) Add(r Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	s.Emit(r)
}

// Records returns a copy of all records in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Record, len(s.records))
	copy(result, s.records)
	return result
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Events returns the channel of newly added records.
func (s *Store) Events() <-chan Record {
	return s.eventsCh
}

// Emit sends a record event (non-blocking).
func (s *Store) Emit(r Record) {
	select {
	case s.eventsCh <- r:
	default:
	}
}
