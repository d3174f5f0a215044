// Package autosave implements the save pipeline that turns in-memory
// document edits into minimal persistence payloads without an explicit
// save action. Edits are coalesced behind a trailing-edge debounce timer,
// diffed against the last acknowledged state, and reconciled back into
// the live rows when the server responds.
package autosave

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"costdesk/engine/lifecycle"
	"costdesk/engine/rows"
)

// headerKey is the reserved snapshot key for the document header.
const headerKey = "__header__"

// Message is a user-facing notice returned by the persistence layer.
// Field is empty for document-level messages.
type Message struct {
	Level string `json:"level"`
	Field string `json:"field"`
	Text  string `json:"text"`
}

// Payload is one save request. DocumentID is empty until the document has
// been persisted for the first time.
type Payload struct {
	Seq            uint64
	DocumentID     string
	DocType        string
	Header         map[string]string
	HeaderChanged  bool
	Lines          []rows.Row
	DeletedLineIDs []string
}

// Result is the persistence layer's response to a Payload. AssignedIDs
// maps row keys of temp-marker rows to their new identifiers. Status is
// empty when the save did not change the document status.
type Result struct {
	Success     bool
	DocumentID  string
	AssignedIDs map[string]string
	Status      lifecycle.Status
	Messages    []Message
}

// Dispatcher is the persistence collaborator. Dispatch is the pipeline's
// only asynchronous boundary; it must not retain the payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload) (Result, error)
}

// HeaderSource exposes the current header field values for collection.
type HeaderSource interface {
	Fields() map[string]string
}

// QuietIntervalFor returns the debounce quiet interval for a document
// type. Delivery receipts are scanned rapidly and save soonest; job cost
// sheets are long-form editing and wait longest.
func QuietIntervalFor(docType string) time.Duration {
	switch docType {
	case "delivery_receipt":
		return 500 * time.Millisecond
	case "job_cost_sheet":
		return 1500 * time.Millisecond
	default:
		return 800 * time.Millisecond
	}
}

// Config wires a pipeline to its document session. Sources, header and
// dispatcher are injected at construction; the pipeline never reaches for
// shared state.
type Config struct {
	DocumentID     string
	DocType        string
	Status         lifecycle.Status
	Header         HeaderSource
	Sources        []rows.Source
	Dispatcher     Dispatcher
	QuietInterval  time.Duration
	OnStatusChange func(lifecycle.Status, lifecycle.Profile)
}

// Pipeline coordinates collection, coalescing, dispatch and response
// reconciliation for one document editing session. All mutation of the
// session's rows and header must go through Update so the pipeline's
// timer goroutine and the request handlers never interleave.
type Pipeline struct {
	mu sync.Mutex
	// dispatchMu serializes save cycles and is held across Dispatch.
	// Collection happens only after the previous response has been
	// reconciled, so an unacknowledged temp-marker row can never ride in
	// two payloads and be inserted twice server-side.
	dispatchMu sync.Mutex

	docID      string
	docType    string
	header     HeaderSource
	sources    []rows.Source
	snapshots  *SnapshotStore
	deletions  *DeletionQueue
	dispatcher Dispatcher
	quiet      time.Duration
	timer      *time.Timer

	seq            uint64
	lastDispatched uint64
	lastSucceeded  bool

	status   lifecycle.Status
	profile  lifecycle.Profile
	onStatus func(lifecycle.Status, lifecycle.Profile)
	messages []Message
}

// New builds a pipeline. A document with no identifier is implicitly
// draft regardless of cfg.Status.
func New(cfg Config) *Pipeline {
	status := cfg.Status
	if cfg.DocumentID == "" || status == "" {
		status = lifecycle.StatusDraft
	}
	quiet := cfg.QuietInterval
	if quiet <= 0 {
		quiet = QuietIntervalFor(cfg.DocType)
	}
	return &Pipeline{
		docID:         cfg.DocumentID,
		docType:       cfg.DocType,
		header:        cfg.Header,
		sources:       cfg.Sources,
		snapshots:     NewSnapshotStore(),
		deletions:     NewDeletionQueue(),
		dispatcher:    cfg.Dispatcher,
		quiet:         quiet,
		status:        status,
		profile:       lifecycle.EditabilityFor(status),
		onStatus:      cfg.OnStatusChange,
		lastSucceeded: true,
	}
}

// Seed records fingerprints for rows loaded from the database so an
// untouched, freshly opened document collects nothing.
func (p *Pipeline) Seed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, src := range p.sources {
		src.ForEachRow(func(r *rows.Row) {
			p.snapshots.Commit(r.Key, r.Fingerprint())
		})
	}
	p.snapshots.Commit(headerKey, headerFingerprint(p.header.Fields()))
}

// Update runs fn under the pipeline lock and restarts the coalescing
// timer. Every edit to the session's rows or header goes through here.
func (p *Pipeline) Update(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
	p.touchLocked()
}

// View runs fn under the pipeline lock without restarting the coalescing
// timer. Renderers use it to read a consistent snapshot of rows and
// header while edits may be arriving concurrently.
func (p *Pipeline) View(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// RemoveRow removes the row for key from src, queueing its identifier
// for server-side deletion when the row was ever persisted. Temp-marker
// rows vanish without a trace.
func (p *Pipeline) RemoveRow(src rows.Source, key string) (rows.Row, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := src.ApplyRemove(key)
	if !ok {
		return rows.Row{}, false
	}
	p.snapshots.Forget(key)
	if row.Persisted() {
		p.deletions.Enqueue(row.ID)
	}
	p.touchLocked()
	return row, true
}

func (p *Pipeline) touchLocked() {
	if p.timer == nil {
		p.timer = time.AfterFunc(p.quiet, func() {
			_ = p.save(context.Background())
		})
		return
	}
	p.timer.Reset(p.quiet)
}

// Stop cancels a pending coalesced save. An in-flight dispatch is not
// aborted.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
}

// Flush saves immediately, bypassing the quiet interval. Used for
// explicit save actions and before status transitions.
func (p *Pipeline) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
	return p.save(ctx)
}

// DocumentID returns the persisted identifier, empty until first save.
func (p *Pipeline) DocumentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.docID
}

// Status returns the current document status.
func (p *Pipeline) Status() lifecycle.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Profile returns the editability profile for the current status.
func (p *Pipeline) Profile() lifecycle.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profile
}

// ApplyStatus records a status confirmed outside the autosave cycle,
// for example by the transition endpoint, and recomputes the profile.
func (p *Pipeline) ApplyStatus(s lifecycle.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyStatusLocked(s)
}

// LastSaveSucceeded reports whether the most recent dispatched save was
// acknowledged. Submission and other dependent actions are blocked while
// this is false.
func (p *Pipeline) LastSaveSucceeded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSucceeded
}

// Messages returns the notices surfaced by the last save response.
func (p *Pipeline) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// PendingDeletions returns the ids currently awaiting server deletion.
func (p *Pipeline) PendingDeletions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletions.Pending()
}

// collectLocked builds the minimal payload for the current state and the
// fingerprints to commit should the save succeed.
func (p *Pipeline) collectLocked() (Payload, map[string]string) {
	payload := Payload{
		DocumentID: p.docID,
		DocType:    p.docType,
		Header:     p.header.Fields(),
	}
	fingerprints := make(map[string]string)

	for _, src := range p.sources {
		src.ForEachRow(func(r *rows.Row) {
			if !r.Complete() {
				return
			}
			fp := r.Fingerprint()
			if !p.snapshots.Changed(r.Key, fp) {
				return
			}
			payload.Lines = append(payload.Lines, *r)
			fingerprints[r.Key] = fp
		})
	}

	headerFP := headerFingerprint(payload.Header)
	payload.HeaderChanged = p.snapshots.Changed(headerKey, headerFP)
	if payload.HeaderChanged {
		fingerprints[headerKey] = headerFP
	}

	payload.DeletedLineIDs = p.deletions.Pending()
	return payload, fingerprints
}

func shouldSave(p Payload) bool {
	return p.HeaderChanged || len(p.Lines) > 0 || len(p.DeletedLineIDs) > 0
}

func (p *Pipeline) save(ctx context.Context) error {
	// One save cycle at a time. A timer fire or Flush during a slow
	// dispatch waits here and then collects fresh state, picking up the
	// identifiers the previous acknowledgment assigned.
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	p.mu.Lock()
	payload, fingerprints := p.collectLocked()
	if !shouldSave(payload) {
		p.mu.Unlock()
		return nil
	}
	p.seq++
	payload.Seq = p.seq
	p.lastDispatched = p.seq
	dispatcher := p.dispatcher
	p.mu.Unlock()

	// The lock is released during dispatch so the user can keep editing;
	// those edits are picked up by the next coalesced cycle.
	result, err := dispatcher.Dispatch(ctx, payload)

	p.mu.Lock()
	defer p.mu.Unlock()

	if payload.Seq != p.lastDispatched {
		// A response for anything but the latest dispatched payload
		// describes state that is no longer current; applying it would
		// clobber newer local edits. Serialized dispatch should make this
		// unreachable, but a misbehaving dispatcher must not corrupt state.
		return nil
	}

	if err != nil {
		p.lastSucceeded = false
		p.messages = []Message{{Level: "error", Text: "save failed; your changes are kept and will be retried on the next edit"}}
		return err
	}
	if !result.Success {
		p.lastSucceeded = false
		p.messages = result.Messages
		return nil
	}

	if result.DocumentID != "" {
		p.docID = result.DocumentID
	}
	for key, fp := range fingerprints {
		p.snapshots.Commit(key, fp)
	}
	p.deletions.Ack(payload.DeletedLineIDs)

	if len(result.AssignedIDs) > 0 {
		for _, src := range p.sources {
			src.ForEachRow(func(r *rows.Row) {
				if id, ok := result.AssignedIDs[r.Key]; ok && !r.Persisted() {
					r.ID = id
				}
			})
		}
	}

	if result.Status != "" {
		p.applyStatusLocked(result.Status)
	}
	p.lastSucceeded = true
	p.messages = result.Messages
	return nil
}

func (p *Pipeline) applyStatusLocked(s lifecycle.Status) {
	if s == p.status {
		return
	}
	p.status = s
	p.profile = lifecycle.EditabilityFor(s)
	if p.onStatus != nil {
		p.onStatus(p.status, p.profile)
	}
}

// headerFingerprint serializes header fields for change detection.
// json.Marshal sorts map keys, so the form is stable.
func headerFingerprint(fields map[string]string) string {
	b, _ := json.Marshal(fields)
	return string(b)
}
