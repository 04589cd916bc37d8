// Package convert drives gateway conversion runs. Each session gets
// one background goroutine that walks the pipeline from fetch and
// scan through analysis, review, translation, validation and
// packaging, persisting progress in the session store and publishing
// events for the SSE and websocket watchers. Abort cancels the run
// context; the goroutine notices at the next cancellation point and
// parks the session in the error state.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"springforge/internal/analyzer"
	"springforge/internal/archive"
	"springforge/internal/artifact"
	"springforge/internal/config"
	"springforge/internal/fetch"
	"springforge/internal/generate"
	"springforge/internal/llm"
	"springforge/internal/mapping"
	"springforge/internal/scan"
	"springforge/internal/session"
	"springforge/internal/translate"
	"springforge/internal/validate"
)

const (
	archiveName          = "project.zip"
	eventBufferSize      = 256
	translationCacheSize = 256
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrNoArchive = errors.New("archive not ready")
)

// StartInput describes a conversion request. Either Source names a git
// URL or local directory, or Upload carries a zipped project.
type StartInput struct {
	Source      string
	Upload      []byte
	AppName     string
	BasePackage string
}

type runState struct {
	cancel  context.CancelFunc
	done    chan struct{}
	changed chan struct{}
}

// Service owns the run registry and the stores the pipeline writes to.
type Service struct {
	store     *session.Store
	artifacts artifact.Store
	client    llm.Client
	settings  config.Settings
	events    *EventBroker
	reviews   *reviewGate

	mu   sync.RWMutex
	runs map[string]*runState
}

func New(store *session.Store, artifacts artifact.Store, client llm.Client, settings config.Settings) *Service {
	return &Service{
		store:     store,
		artifacts: artifacts,
		client:    client,
		settings:  settings,
		events:    NewEventBroker(),
		reviews:   newReviewGate(),
		runs:      make(map[string]*runState),
	}
}

// Start registers a new session and launches its pipeline goroutine.
func (s *Service) Start(in StartInput) (session.Session, error) {
	source := strings.TrimSpace(in.Source)
	if source == "" && len(in.Upload) == 0 {
		return session.Session{}, fmt.Errorf("convert: source is required")
	}
	basePkg := strings.TrimSpace(in.BasePackage)
	if basePkg == "" {
		basePkg = s.settings.BasePackage
	}
	appName := strings.TrimSpace(in.AppName)
	if appName == "" {
		appName = projectName(source)
	}

	id := fmt.Sprintf("sess-%d", time.Now().UnixNano())
	sess := session.New(id, source, basePkg)
	sess.AppName = appName
	s.store.Put(sess)

	ctx, cancel := context.WithCancel(context.Background())
	rs := &runState{cancel: cancel, done: make(chan struct{}), changed: make(chan struct{})}
	s.mu.Lock()
	s.runs[id] = rs
	s.mu.Unlock()
	s.events.Allocate(id, eventBufferSize)

	go s.run(ctx, id, in, basePkg, appName)

	return sess, nil
}

// Get returns the stored session record.
func (s *Service) Get(id string) (session.Session, bool) {
	return s.store.Get(id)
}

// List returns all sessions, newest first.
func (s *Service) List() []session.Session {
	return s.store.List()
}

// Events returns the progress channel for a running or recently
// finished session.
func (s *Service) Events(id string) (<-chan Event, bool) {
	ch, ok := s.events.Get(id)
	return ch, ok
}

// Review resolves the review phase for a session.
func (s *Service) Review(id string, d Decision) error {
	action := strings.ToLower(strings.TrimSpace(d.Action))
	switch action {
	case ActionApprove, ActionRedo:
	default:
		return fmt.Errorf("convert: unknown review action %q", d.Action)
	}
	d.Action = action
	return s.reviews.submit(id, d)
}

// Abort cancels a running conversion. The pipeline goroutine observes
// the cancellation at its next checkpoint and fails the session.
func (s *Service) Abort(id string) error {
	sess, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("convert: session %s: %w", id, ErrNotFound)
	}
	if sess.State.Terminal() {
		return fmt.Errorf("convert: session %s already finished", id)
	}
	s.mu.RLock()
	rs, running := s.runs[id]
	s.mu.RUnlock()
	if !running {
		return fmt.Errorf("convert: session %s has no active run", id)
	}
	rs.cancel()
	return nil
}

// Archive returns the packaged project for a finished session. When
// the artifact store hands out presigned URLs the URL comes back
// instead of the bytes.
func (s *Service) Archive(ctx context.Context, id string) (data []byte, url string, err error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, "", fmt.Errorf("convert: session %s: %w", id, ErrNotFound)
	}
	if sess.ArchiveKey == "" {
		return nil, "", fmt.Errorf("convert: session %s: %w", id, ErrNoArchive)
	}
	if url, err = s.artifacts.GetURL(ctx, id, sess.ArchiveKey); err == nil && url != "" {
		return nil, url, nil
	}
	data, err = s.artifacts.Get(ctx, id, sess.ArchiveKey)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// run is the pipeline goroutine. Every phase transition is persisted
// before the next phase starts, so a watcher reconnecting mid-run sees
// a consistent session record.
func (s *Service) run(ctx context.Context, id string, in StartInput, basePkg, appName string) {
	defer s.finish(id)

	s.advance(id, session.StateValidatingSource)
	s.events.Publish(id, Event{Phase: "fetch", Percent: 5, Message: "fetching source project"})

	fetcher := fetch.New(s.settings.WorkDirPrefix)
	var (
		dir     string
		cleanup func()
		err     error
	)
	if len(in.Upload) > 0 {
		dir, cleanup, err = fetcher.FetchUpload(in.Upload, in.Source)
	} else {
		dir, cleanup, err = fetcher.Fetch(ctx, in.Source)
	}
	if err != nil {
		s.fail(id, err)
		return
	}
	defer cleanup()

	inv, err := scan.Index(dir)
	if err != nil {
		s.fail(id, err)
		return
	}
	if inv.Len() == 0 {
		s.fail(id, fmt.Errorf("convert: no source files found in %s", in.Source))
		return
	}
	rails := scan.IsRailsProject(dir)
	s.events.Publish(id, Event{Phase: "scan", Percent: 15, Message: fmt.Sprintf("indexed %d files", inv.Len())})

	s.advance(id, session.StateAnalyzing)
	an := analyzer.New(s.client)
	feedback := ""
	var prop *analyzer.StructureProposal
	for {
		files, truncated := inv.PromptPaths(s.settings.MaxPromptFiles)
		s.events.Publish(id, Event{Phase: "analyze", Percent: 25, Message: "proposing target structure"})
		prop, err = an.Propose(ctx, analyzer.Input{
			Files:       files,
			Truncated:   truncated,
			RailsApp:    rails,
			BasePackage: basePkg,
			Feedback:    feedback,
		})
		if err != nil {
			s.fail(id, err)
			return
		}

		// The gate registers before the state flips to reviewing, so
		// anyone who observes the state can submit a decision.
		pending := s.reviews.register(id)
		s.store.Update(id, func(sess *session.Session) {
			if aerr := sess.Advance(session.StateReviewing); aerr != nil {
				log.Printf("convert: %v", aerr)
			}
			sess.Proposal = prop
			sess.BasePackage = basePkg
		})
		s.notify(id)
		s.events.Publish(id, Event{Phase: "review", Percent: 40, Message: fmt.Sprintf("proposal with %d files awaiting review", prop.FileCount())})

		decision, werr := s.reviews.wait(ctx, pending)
		if werr != nil {
			s.fail(id, werr)
			return
		}
		if decision.Action != ActionRedo {
			break
		}
		feedback = decision.Feedback
		if pkg := strings.TrimSpace(decision.BasePackage); pkg != "" {
			basePkg = pkg
		}
		s.advance(id, session.StateAnalyzing)
	}

	s.advance(id, session.StateTranslating)
	res := mapping.Map(prop, inv.Files())
	s.store.Update(id, func(sess *session.Session) { sess.MappingWarnings = res.Warnings })
	s.events.Publish(id, Event{Phase: "map", Percent: 45, Message: fmt.Sprintf("%d of %d files mapped to sources", res.MappedCount(), len(res.Pairs))})

	outDir, err := os.MkdirTemp("", "springforge-out-*")
	if err != nil {
		s.fail(id, err)
		return
	}
	defer os.RemoveAll(outDir)
	s.store.Update(id, func(sess *session.Session) { sess.WorkDir = outDir })

	total := int64(prop.FileCount())
	var emitted atomic.Int64
	gen, err := generate.New(translate.New(s.client, translationCacheSize), inv, outDir, generate.Options{
		BasePackage: basePkg,
		AppName:     appName,
		Parallelism: s.settings.Parallelism,
		Progress: func(p string, status generate.Status, detail string) {
			pct := 45
			if total > 0 {
				pct += int(40 * emitted.Add(1) / total)
			}
			if pct > 85 {
				pct = 85
			}
			msg := p
			if status == generate.StatusFailed {
				msg = p + " failed: " + detail
			}
			s.events.Publish(id, Event{Phase: "translate", Percent: pct, Message: msg})
		},
	})
	if err != nil {
		s.fail(id, err)
		return
	}
	sum, err := gen.Run(ctx, prop, res.Pairs)
	if err != nil {
		s.fail(id, err)
		return
	}
	s.store.Update(id, func(sess *session.Session) { sess.Summary = sum })
	s.notify(id)

	s.advance(id, session.StateValidatingOutput)
	s.events.Publish(id, Event{Phase: "validate", Percent: 88, Message: "compiling generated project"})
	report := validate.Check(ctx, validate.NewMaven(s.settings.MavenBin, s.settings.MavenTimeout), outDir)
	s.store.Update(id, func(sess *session.Session) { sess.Validation = &report })
	if ctx.Err() != nil {
		s.fail(id, ctx.Err())
		return
	}

	s.events.Publish(id, Event{Phase: "package", Percent: 95, Message: "packaging spring boot project"})
	data, err := archive.Build(outDir)
	if err != nil {
		s.fail(id, err)
		return
	}
	if err := s.artifacts.Put(ctx, id, archiveName, data); err != nil {
		s.fail(id, err)
		return
	}
	s.store.Update(id, func(sess *session.Session) { sess.ArchiveKey = archiveName })
	s.advance(id, session.StateDone)
	s.events.Publish(id, Event{Phase: "done", Percent: 100, Message: fmt.Sprintf("converted %d files", sum.Total()), Terminal: true})
}

func (s *Service) advance(id string, to session.State) {
	s.store.Update(id, func(sess *session.Session) {
		if err := sess.Advance(to); err != nil {
			log.Printf("convert: %v", err)
		}
	})
	s.notify(id)
}

func (s *Service) fail(id string, err error) {
	if errors.Is(err, context.Canceled) {
		err = errors.New("conversion aborted")
	}
	s.store.Update(id, func(sess *session.Session) { sess.Fail(err) })
	s.events.Publish(id, Event{Phase: "error", Message: err.Error(), Terminal: true})
	s.notify(id)
}

// finish releases the run slot. The registry entry and event channel
// linger for a retention window so late watchers still see the
// terminal state.
func (s *Service) finish(id string) {
	s.notify(id)
	s.mu.Lock()
	rs, ok := s.runs[id]
	s.mu.Unlock()
	if ok {
		rs.cancel()
		close(rs.done)
	}
	time.AfterFunc(finishedRunRetention, func() {
		s.mu.Lock()
		delete(s.runs, id)
		s.mu.Unlock()
	})
	s.events.ScheduleCleanup(id)
}

func (s *Service) notify(id string) {
	s.mu.Lock()
	if rs, ok := s.runs[id]; ok {
		close(rs.changed)
		rs.changed = make(chan struct{})
	}
	s.mu.Unlock()
}

// projectName derives an application name from a source URL, archive
// name or local path.
func projectName(source string) string {
	s := strings.ReplaceAll(strings.TrimSpace(source), "\\", "/")
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	base := strings.TrimSuffix(path.Base(s), ".zip")
	if base == "." || base == "/" {
		return ""
	}
	return base
}
