package convert

import (
	"context"
	"fmt"

	"springforge/internal/analyzer"
	"springforge/internal/session"
)

// Snapshot is one state observation pushed to review subscribers.
type Snapshot struct {
	State    session.State               `json:"state"`
	Proposal *analyzer.StructureProposal `json:"proposal,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// Subscribe emits a snapshot of the session record whenever it
// changes, starting with the current state. The channel closes once
// the session reaches a terminal state, the run is gone, or ctx is
// canceled.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Snapshot, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, fmt.Errorf("convert: session %s: %w", id, ErrNotFound)
	}
	out := make(chan Snapshot, 8)

	go func() {
		defer close(out)
		for {
			// Grab the change channel before reading the record.
			// Updates landing after the read close the grabbed
			// channel, so the loop re-reads instead of parking on
			// a channel that already fired.
			s.mu.RLock()
			rs, running := s.runs[id]
			var changed chan struct{}
			if running {
				changed = rs.changed
			}
			s.mu.RUnlock()

			sess, ok := s.store.Get(id)
			if !ok {
				return
			}
			pushSnapshot(out, Snapshot{State: sess.State, Proposal: sess.Proposal, Error: sess.Error})
			if sess.State.Terminal() || !running {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()

	return out, nil
}

// pushSnapshot never blocks the notifier; a slow subscriber loses the
// oldest snapshot, not the newest.
func pushSnapshot(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}
