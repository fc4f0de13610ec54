package download

import (
	"sync"
	"time"

	"github.com/cperrin88/brewse/pkg/model"
)

// reporter throttles progress delivery and enforces the monotonicity
// contract: bytes never decrease (a retry after a partial transfer resumes
// reporting from the previous high-water mark) and the phase only advances
// forward. Phase changes are always delivered; byte updates at most once per
// ProgressInterval.
type reporter struct {
	mu           sync.Mutex
	fn           model.ProgressFunc
	cur          model.Progress
	attemptBytes int64
	last         time.Time
	now          func() time.Time
}

func newReporter(fn model.ProgressFunc) *reporter {
	return &reporter{fn: fn, now: time.Now}
}

func (r *reporter) active() bool {
	return r != nil && r.fn != nil
}

func (r *reporter) phase(p model.Phase) {
	if !r.active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p <= r.cur.Phase && p != model.PhaseQueued {
		return
	}
	r.cur.Phase = p
	r.emitLocked(true)
}

func (r *reporter) total(n int64) {
	if !r.active() || n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur.BytesTotal = n
}

// startAttempt resets the per-attempt byte counter. The reported BytesDone
// keeps its high-water mark so a retry never appears to move backward.
func (r *reporter) startAttempt() {
	if !r.active() {
		return
	}
	r.mu.Lock()
	r.attemptBytes = 0
	r.mu.Unlock()
}

// Write lets the reporter sit inside an io.MultiWriter on the download path.
func (r *reporter) Write(p []byte) (int, error) {
	if r.active() {
		r.mu.Lock()
		r.attemptBytes += int64(len(p))
		if r.attemptBytes > r.cur.BytesDone {
			r.cur.BytesDone = r.attemptBytes
		}
		r.emitLocked(false)
		r.mu.Unlock()
	}
	return len(p), nil
}

func (r *reporter) emitLocked(force bool) {
	now := r.now()
	if !force && now.Sub(r.last) < ProgressInterval {
		return
	}
	r.last = now
	r.fn(r.cur)
}
