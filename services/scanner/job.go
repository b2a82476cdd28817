package scanner

import (
	"context"
	"sync"
	"time"

	"go_scanner_project/models"
)

// job is the orchestration record for one scan. All mutation happens on the
// job's own run goroutine or through Cancel; everything else takes read
// snapshots under the lock, so a concurrent status poller always observes a
// consistent (state, progress, partial_results) triple.
type job struct {
	id      string
	request ScanRequest
	start   time.Time
	end     time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	state     models.ScanState
	processed int
	total     int
	skipped   []string
	matches   []models.ScanMatch
	errMsg    string
	createdAt time.Time
	endedAt   time.Time
}

func newJob(id string, req ScanRequest, start, end time.Time) *job {
	ctx, cancel := context.WithCancel(context.Background())
	return &job{
		id:        id,
		request:   req,
		start:     start,
		end:       end,
		ctx:       ctx,
		cancel:    cancel,
		state:     models.ScanPending,
		createdAt: time.Now(),
	}
}

func (j *job) currentState() models.ScanState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// setRunning transitions Pending -> Running once the candidate list is known.
func (j *job) setRunning(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == models.ScanPending {
		j.state = models.ScanRunning
		j.total = total
	}
}

// advance bumps the processed counter after one ticker finishes, match or not.
func (j *job) advance() {
	j.mu.Lock()
	j.processed++
	j.mu.Unlock()
}

// recordSkip accounts a permanently failed ticker and advances progress.
func (j *job) recordSkip(ticker string) {
	j.mu.Lock()
	j.skipped = append(j.skipped, ticker)
	j.processed++
	j.mu.Unlock()
}

// addMatch appends to partial results unless the job already left Running;
// results arriving after cancellation are discarded.
func (j *job) addMatch(m models.ScanMatch) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != models.ScanRunning {
		return
	}
	j.matches = append(j.matches, m)
}

// matchCount returns the number of accumulated matches.
func (j *job) matchCount() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.matches)
}

// finish moves the job to a terminal state. The first terminal transition
// wins; later calls are no-ops.
func (j *job) finish(state models.ScanState, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = state
	j.errMsg = errMsg
	j.endedAt = time.Now()
}

// requestCancel flips a non-terminal job to Cancelled and stops further
// fetch admissions. Reports whether the transition happened.
func (j *job) requestCancel() bool {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return false
	}
	j.state = models.ScanCancelled
	j.endedAt = time.Now()
	j.mu.Unlock()
	j.cancel()
	return true
}

// setResults replaces the accumulated matches with the final ordered set.
func (j *job) setResults(matches []models.ScanMatch) {
	j.mu.Lock()
	j.matches = matches
	j.mu.Unlock()
}

// snapshot builds the externally visible status under the read lock.
func (j *job) snapshot() *ScanStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	status := &ScanStatus{
		ID:             j.id,
		State:          j.state,
		ProcessedCount: j.processed,
		TotalCount:     j.total,
		SkippedCount:   len(j.skipped),
		SkippedTickers: append([]string(nil), j.skipped...),
		PartialResults: append([]models.ScanMatch(nil), j.matches...),
		Error:          j.errMsg,
		StartedAt:      j.createdAt.Format(time.RFC3339),
	}
	if j.total > 0 {
		status.Progress = float64(j.processed) / float64(j.total)
	} else if j.state.Terminal() {
		status.Progress = 1.0
	}

	elapsed := time.Since(j.createdAt)
	if !j.endedAt.IsZero() {
		elapsed = j.endedAt.Sub(j.createdAt)
	}
	status.ElapsedTime = elapsed.Round(time.Second).String()
	if j.state == models.ScanRunning && j.processed > 0 && j.total > j.processed {
		avg := elapsed / time.Duration(j.processed)
		status.EstimatedTime = (avg * time.Duration(j.total-j.processed)).Round(time.Second).String()
	}
	return status
}

// results returns a copy of the match list.
func (j *job) results() []models.ScanMatch {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]models.ScanMatch(nil), j.matches...)
}
