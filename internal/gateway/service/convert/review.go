package convert

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	ActionApprove = "approve"
	ActionRedo    = "redo"
)

// Decision is a reviewer's verdict on a structure proposal. Feedback
// and BasePackage only matter for redo.
type Decision struct {
	Action      string `json:"action"`
	Feedback    string `json:"feedback,omitempty"`
	BasePackage string `json:"base_package,omitempty"`
}

type pendingReview struct {
	sessionID  string
	decisionCh chan Decision
	done       chan struct{}
	closeOnce  sync.Once
}

func (p *pendingReview) closeDone() {
	p.closeOnce.Do(func() { close(p.done) })
}

// reviewGate tracks runs parked on the review phase and hands the
// submitted decision to the waiting pipeline goroutine.
type reviewGate struct {
	mu   sync.RWMutex
	byID map[string]*pendingReview
}

func newReviewGate() *reviewGate {
	return &reviewGate{byID: make(map[string]*pendingReview)}
}

func (g *reviewGate) register(sessionID string) *pendingReview {
	p := &pendingReview{
		sessionID:  strings.TrimSpace(sessionID),
		decisionCh: make(chan Decision, 1),
		done:       make(chan struct{}),
	}
	g.mu.Lock()
	g.byID[p.sessionID] = p
	g.mu.Unlock()
	return p
}

func (g *reviewGate) wait(ctx context.Context, p *pendingReview) (Decision, error) {
	defer g.clear(p.sessionID)
	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-p.done:
		return Decision{}, fmt.Errorf("review for session %s canceled", p.sessionID)
	case d := <-p.decisionCh:
		return d, nil
	}
}

// submit hands a decision to the pipeline goroutine waiting in the
// review phase. The first decision wins; a second one arriving before
// the first is consumed is rejected.
func (g *reviewGate) submit(sessionID string, d Decision) error {
	sessionID = strings.TrimSpace(sessionID)
	g.mu.RLock()
	p, ok := g.byID[sessionID]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s is not awaiting review", sessionID)
	}
	select {
	case p.decisionCh <- d:
		return nil
	default:
		return fmt.Errorf("session %s already has a pending decision", sessionID)
	}
}

func (g *reviewGate) clear(sessionID string) {
	g.mu.Lock()
	p, ok := g.byID[sessionID]
	if ok {
		delete(g.byID, sessionID)
	}
	g.mu.Unlock()
	if ok {
		p.closeDone()
	}
}
