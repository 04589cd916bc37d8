// Package session tracks a conversion from source intake to the
// downloadable archive. The state machine is linear with one loop: a
// reviewer can send the proposal back for another analysis round. The
// store persists sessions to a JSON file or, when SESSION_DSN is set,
// to Postgres.
package session

import (
	"fmt"
	"strings"
	"time"

	"springforge/internal/analyzer"
	"springforge/internal/generate"
	"springforge/internal/validate"
)

// State names the stage a session is in.
type State string

const (
	StateInput            State = "input"
	StateValidatingSource State = "validating_source"
	StateAnalyzing        State = "analyzing"
	StateReviewing        State = "reviewing"
	StateTranslating      State = "translating"
	StateValidatingOutput State = "validating_output"
	StateDone             State = "done"
	StateError            State = "error"
)

var transitions = map[State][]State{
	StateInput:            {StateValidatingSource},
	StateValidatingSource: {StateAnalyzing},
	StateAnalyzing:        {StateReviewing},
	StateReviewing:        {StateTranslating, StateAnalyzing},
	StateTranslating:      {StateValidatingOutput},
	StateValidatingOutput: {StateDone},
}

// CanAdvance reports whether to is a legal next stage from s.
func (s State) CanAdvance(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the session has stopped moving.
func (s State) Terminal() bool { return s == StateDone || s == StateError }

// Session is one conversion run. The work directory is owned by
// exactly one session; two sessions never share one.
type Session struct {
	ID          string `json:"id"`
	State       State  `json:"state"`
	Source      string `json:"source"`
	AppName     string `json:"app_name,omitempty"`
	BasePackage string `json:"base_package"`
	WorkDir     string `json:"work_dir,omitempty"`

	Proposal        *analyzer.StructureProposal `json:"proposal,omitempty"`
	MappingWarnings []string                    `json:"mapping_warnings,omitempty"`
	Summary         *generate.Summary           `json:"summary,omitempty"`
	Validation      *validate.Report            `json:"validation,omitempty"`
	ArchiveKey      string                      `json:"archive_key,omitempty"`
	Error           string                      `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New starts a session at the input stage.
func New(id, source, basePackage string) Session {
	now := time.Now().UTC()
	return Session{
		ID:          strings.TrimSpace(id),
		State:       StateInput,
		Source:      strings.TrimSpace(source),
		BasePackage: strings.TrimSpace(basePackage),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance moves the session to its next stage.
func (s *Session) Advance(to State) error {
	if !s.State.CanAdvance(to) {
		return fmt.Errorf("session %s: illegal transition %s -> %s", s.ID, s.State, to)
	}
	s.State = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail parks the session in the error state with the cause. Sessions
// already done stay done.
func (s *Session) Fail(err error) {
	if s.State.Terminal() {
		return
	}
	s.State = StateError
	if err != nil {
		s.Error = err.Error()
	}
	s.UpdatedAt = time.Now().UTC()
}

func normalizeSession(sess Session) Session {
	sess.ID = strings.TrimSpace(sess.ID)
	sess.Source = strings.TrimSpace(sess.Source)
	sess.BasePackage = strings.TrimSpace(sess.BasePackage)
	if sess.State == "" {
		sess.State = StateInput
	}
	return sess
}

type rowScanner interface {
	Scan(dest ...any) error
}
