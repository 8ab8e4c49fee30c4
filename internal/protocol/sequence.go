package protocol

import "sync"

const (
	// DefaultResyncGap is how far behind the newest sequence a packet may fall
	// before it is taken as a sender restart rather than a late packet.
	DefaultResyncGap = 1024

	// ResyncAfter is the number of consecutive late packets that are taken as
	// a sender restart. The packet completing the run is accepted.
	ResyncAfter = 8
)

// SequenceWindow accepts strictly increasing sequence numbers and rejects
// late or duplicate ones.
type SequenceWindow struct {
	resyncGap uint64

	started bool
	highest uint64
	lateRun int

	// Statistics
	accepted uint64
	late     uint64
	lost     uint64
	resyncs  uint64

	mu sync.Mutex
}

// SequenceStats represents sequence window statistics
type SequenceStats struct {
	Highest  uint64 `json:"highest_sequence"`
	Accepted uint64 `json:"accepted"`
	Late     uint64 `json:"late"`
	Lost     uint64 `json:"lost"`
	Resyncs  uint64 `json:"resyncs"`
}

// NewSequenceWindow creates a window. A zero resyncGap uses DefaultResyncGap.
func NewSequenceWindow(resyncGap uint64) *SequenceWindow {
	if resyncGap == 0 {
		resyncGap = DefaultResyncGap
	}
	return &SequenceWindow{resyncGap: resyncGap}
}

// Accept reports whether a packet with the given sequence should be played.
func (w *SequenceWindow) Accept(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case !w.started:
		w.started = true
	case seq > w.highest:
		w.lost += seq - w.highest - 1
	case w.highest-seq > w.resyncGap || w.lateRun+1 >= ResyncAfter:
		// The peer restarted its counter.
		w.resyncs++
	default:
		w.late++
		w.lateRun++
		return false
	}

	w.lateRun = 0
	w.highest = seq
	w.accepted++
	return true
}

// GetStats returns current window statistics
func (w *SequenceWindow) GetStats() SequenceStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return SequenceStats{
		Highest:  w.highest,
		Accepted: w.accepted,
		Late:     w.late,
		Lost:     w.lost,
		Resyncs:  w.resyncs,
	}
}
