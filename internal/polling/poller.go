// Package polling approximates live participant updates for a host by
// re-reading the participant list on a fixed interval.
package polling

import (
	"context"
	"sync"
	"time"

	"quiz-sync-service/internal/domain"
)

// DefaultInterval bounds how stale the host's participant list can get.
const DefaultInterval = 5 * time.Second

// Fetcher reads the current participants of a quiz. It must not fail; the
// persistence service satisfies it.
type Fetcher interface {
	GetParticipants(ctx context.Context, quizID string) []domain.Participant
}

// State of a Poller.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
)

// Snapshot is the most recent participant list a poller observed.
type Snapshot struct {
	QuizID       string               `json:"quizId"`
	Participants []domain.Participant `json:"participants"`
	FetchedAt    time.Time            `json:"fetchedAt"`
}

// Poller is bound to at most one quiz at a time. onUpdate runs on the polling
// goroutine and must not call Watch or Stop.
type Poller struct {
	fetch    Fetcher
	interval time.Duration
	onUpdate func(Snapshot)
	now      func() time.Time

	mu     sync.Mutex
	quizID string
	cancel context.CancelFunc
	done   chan struct{}

	snapMu sync.RWMutex
	latest Snapshot
}

// NewPoller returns an idle poller. A non-positive interval means DefaultInterval.
func NewPoller(fetch Fetcher, interval time.Duration, onUpdate func(Snapshot)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		onUpdate: onUpdate,
		now:      time.Now,
	}
}

// Watch binds the poller to quizID: it fetches immediately and then once per
// interval. Binding to a different quiz cancels the previous loop first; an
// empty id returns the poller to idle.
func (p *Poller) Watch(quizID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil && p.quizID == quizID {
		return
	}
	p.stopLocked()
	if quizID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.quizID = quizID
	p.cancel = cancel
	p.done = done
	go p.run(ctx, quizID, done)
}

// Stop cancels polling and waits for the loop to exit. No update is delivered
// after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.quizID = ""
}

// State reports whether a polling loop is running.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return StateIdle
	}
	return StatePolling
}

// QuizID returns the bound quiz, or "" when idle.
func (p *Poller) QuizID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quizID
}

// Latest returns the last snapshot; its QuizID may belong to a previous binding.
func (p *Poller) Latest() Snapshot {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.latest
}

func (p *Poller) run(ctx context.Context, quizID string, done chan struct{}) {
	defer close(done)

	p.poll(ctx, quizID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, quizID)
		}
	}
}

func (p *Poller) poll(ctx context.Context, quizID string) {
	participants := p.fetch.GetParticipants(ctx, quizID)
	if ctx.Err() != nil {
		return
	}
	snap := Snapshot{QuizID: quizID, Participants: participants, FetchedAt: p.now()}

	p.snapMu.Lock()
	p.latest = snap
	p.snapMu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
