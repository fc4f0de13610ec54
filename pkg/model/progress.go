package model

// Phase enumerates the stages of a catalog fetch. Phases only advance
// forward in the declared order, never backward.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseDownloading
	PhaseProcessing
	PhaseComplete
	PhaseFailed
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseDownloading:
		return "downloading"
	case PhaseProcessing:
		return "processing"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time report of a running fetch. Within one fetch
// BytesDone and ItemsDone never decrease.
type Progress struct {
	Phase      Phase
	BytesDone  int64
	BytesTotal int64 // 0 when the total is unknown
	ItemsDone  int
	ItemsTotal int // 0 until processing completes
}

// UnknownPercent is reported while the total transfer size is unknown.
const UnknownPercent = float64(-1)

// Percent returns the byte completion in [0,100], or UnknownPercent when the
// total is unknown.
func (p Progress) Percent() float64 {
	if p.BytesTotal <= 0 {
		return UnknownPercent
	}
	return float64(p.BytesDone) / float64(p.BytesTotal) * 100
}

// ProgressFunc receives throttled progress reports. A nil ProgressFunc is
// accepted everywhere and disables reporting.
type ProgressFunc func(Progress)
