// Package apply drives the per-file apply/accept/reject lifecycle of
// generated code edits.
package apply

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/pairchat/internal/bus"
	"github.com/yourusername/pairchat/internal/channel"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/rpc"
)

var (
	// ErrInvalidTransition is returned for Accept/Reject outside Applied
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrApplyTimeout is recorded when the host never answered an apply
	ErrApplyTimeout = errors.New("apply timed out")
)

// State of a single file
type State int

const (
	Idle State = iota
	Applying
	Applied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Applying:
		return "applying"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a snapshot of one file's lifecycle
type Status struct {
	Path      string                  `json:"path"`
	State     State                   `json:"-"`
	StateName string                  `json:"state"`
	EditID    string                  `json:"editId,omitempty"`
	RequestID string                  `json:"requestId,omitempty"`
	Result    *models.FastApplyResult `json:"result,omitempty"`
	Err       error                   `json:"-"`
	Error     string                  `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// Observer is called after every status change, outside the tracker lock,
// in the order the changes happened
type Observer func(Status)

// Options configures a Tracker
type Options struct {
	// Timeout returns an unanswered apply to Idle. Zero disables it.
	Timeout time.Duration
}

type fileState struct {
	status   Status
	expected string
	timer    *time.Timer
}

type observer struct {
	fn Observer
}

// Tracker owns the apply state of every file. A file's "expected" request
// id is the only fast_apply response it will accept; re-applying replaces
// it, so answers to superseded generations are ignored.
type Tracker struct {
	ch  channel.Sender
	opt Options

	mu        sync.Mutex
	files     map[string]*fileState
	byRequest map[string]string
	observers []*observer
	outbox    []Status
	flushing  bool

	unsubscribe bus.Unsubscribe
	log         zerolog.Logger
}

// NewTracker subscribes to fast_apply responses on b
func NewTracker(ch channel.Sender, b *bus.Bus, opt Options) *Tracker {
	t := &Tracker{
		ch:        ch,
		opt:       opt,
		files:     make(map[string]*fileState),
		byRequest: make(map[string]string),
		log:       logging.For("apply"),
	}
	t.unsubscribe = b.On(models.CmdFastApply, t.handleResponse)
	return t
}

// Apply sends code for path and moves the file to Applying. It is allowed
// from any state.
func (t *Tracker) Apply(path, code string) (Status, error) {
	if path == "" {
		return Status{}, fmt.Errorf("apply: empty file path")
	}

	editID := models.NewEditID()
	env, err := models.NewRequest(models.CmdFastApply, models.FastApplyRequest{EditID: editID, FilePath: path, Code: code})
	if err != nil {
		return Status{}, err
	}

	t.mu.Lock()
	f := t.file(path)
	superseded := f.expected
	t.clearExpected(f)
	f.expected = env.ID
	t.byRequest[env.ID] = path
	f.status = Status{Path: path, State: Applying, EditID: editID, RequestID: env.ID}
	if t.opt.Timeout > 0 {
		reqID := env.ID
		f.timer = time.AfterFunc(t.opt.Timeout, func() { t.expire(path, reqID) })
	}
	st := t.stamp(f)
	t.emit(st)
	t.mu.Unlock()

	if superseded != "" {
		t.log.Debug().Str("path", path).Str("superseded", superseded).Msg("apply superseded")
	}
	t.ch.Send(env)
	t.flush()
	return st, nil
}

// Accept keeps the applied edit and returns the file to Idle
func (t *Tracker) Accept(path string) error {
	return t.decide(path, models.CmdFastApplyAccept)
}

// Reject reverts the applied edit and returns the file to Idle
func (t *Tracker) Reject(path string) error {
	return t.decide(path, models.CmdFastApplyReject)
}

func (t *Tracker) decide(path string, cmd models.Command) error {
	t.mu.Lock()
	f, ok := t.files[path]
	if !ok || f.status.State != Applied {
		state := Idle
		if ok {
			state = f.status.State
		}
		t.mu.Unlock()
		return fmt.Errorf("%w: %s from %s for %s", ErrInvalidTransition, cmd, state, path)
	}
	decision := models.FastApplyDecision{EditID: f.status.EditID, FilePath: path}
	env, err := models.NewRequest(cmd, decision)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	f.status = Status{Path: path, State: Idle, EditID: decision.EditID}
	t.emit(t.stamp(f))
	t.mu.Unlock()

	t.ch.Send(env)
	t.flush()
	return nil
}

// Abandon forgets any outstanding apply for path, e.g. when the user
// navigates away. Late responses are then ignored.
func (t *Tracker) Abandon(path string) {
	t.mu.Lock()
	f, ok := t.files[path]
	if !ok || f.status.State == Idle {
		t.mu.Unlock()
		return
	}
	t.clearExpected(f)
	f.status = Status{Path: path, State: Idle, EditID: f.status.EditID}
	t.emit(t.stamp(f))
	t.mu.Unlock()

	t.flush()
}

// Status returns the current status of path. Unknown files are Idle.
func (t *Tracker) Status(path string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.files[path]; ok {
		return f.status
	}
	return Status{Path: path, State: Idle, StateName: Idle.String()}
}

// List returns every tracked file ordered by path
func (t *Tracker) List() []Status {
	t.mu.Lock()
	out := make([]Status, 0, len(t.files))
	for _, f := range t.files {
		out = append(out, f.status)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Observe registers fn for status changes and returns a function that
// removes it
func (t *Tracker) Observe(fn Observer) func() {
	o := &observer{fn: fn}
	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, existing := range t.observers {
				if existing == o {
					t.observers = append(t.observers[:i:i], t.observers[i+1:]...)
					break
				}
			}
		})
	}
}

// Close stops listening for responses and cancels apply timers
func (t *Tracker) Close() {
	t.unsubscribe()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.files {
		if f.timer != nil {
			f.timer.Stop()
		}
	}
}

func (t *Tracker) handleResponse(env models.Envelope) {
	t.mu.Lock()
	path, ok := t.byRequest[env.ID]
	if !ok {
		t.mu.Unlock()
		t.log.Debug().Str("id", env.ID).Msg("ignoring stale fast_apply response")
		return
	}
	f := t.files[path]
	if f.expected != env.ID || f.status.State != Applying {
		t.mu.Unlock()
		t.log.Debug().Str("id", env.ID).Str("path", path).Msg("ignoring fast_apply response for superseded request")
		return
	}
	t.clearExpected(f)

	prev := f.status
	if env.Failed() {
		f.status = Status{Path: path, State: Idle, EditID: prev.EditID, RequestID: prev.RequestID,
			Err: &rpc.HostError{Command: env.Command, ID: env.ID, Info: *env.Error}}
	} else {
		result, err := models.DecodePayload[models.FastApplyResult](env)
		if err != nil {
			f.status = Status{Path: path, State: Idle, EditID: prev.EditID, RequestID: prev.RequestID, Err: err}
		} else {
			f.status = Status{Path: path, State: Applied, EditID: prev.EditID, RequestID: prev.RequestID, Result: &result}
		}
	}
	t.emit(t.stamp(f))
	t.mu.Unlock()

	t.flush()
}

func (t *Tracker) expire(path, reqID string) {
	t.mu.Lock()
	f, ok := t.files[path]
	if !ok || f.expected != reqID || f.status.State != Applying {
		t.mu.Unlock()
		return
	}
	t.clearExpected(f)
	f.status = Status{Path: path, State: Idle, EditID: f.status.EditID, RequestID: reqID,
		Err: fmt.Errorf("%w after %s", ErrApplyTimeout, t.opt.Timeout)}
	t.emit(t.stamp(f))
	t.mu.Unlock()

	t.log.Warn().Str("path", path).Str("id", reqID).Msg("apply timed out")
	t.flush()
}

// file returns the state for path, creating it. Caller holds mu.
func (t *Tracker) file(path string) *fileState {
	f, ok := t.files[path]
	if !ok {
		f = &fileState{status: Status{Path: path, State: Idle}}
		t.files[path] = f
	}
	return f
}

// clearExpected drops the pending request of f. Caller holds mu.
func (t *Tracker) clearExpected(f *fileState) {
	if f.expected != "" {
		delete(t.byRequest, f.expected)
		f.expected = ""
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// stamp fills derived fields and returns a copy. Caller holds mu.
func (t *Tracker) stamp(f *fileState) Status {
	f.status.StateName = f.status.State.String()
	f.status.UpdatedAt = time.Now()
	if f.status.Err != nil {
		f.status.Error = f.status.Err.Error()
	}
	return f.status
}

// emit queues st for observers. Caller holds mu, so the queue follows the
// order in which states changed.
func (t *Tracker) emit(st Status) {
	t.outbox = append(t.outbox, st)
}

// flush delivers queued statuses in order, outside the lock. Only one
// goroutine delivers at a time; the others leave their statuses to it.
func (t *Tracker) flush() {
	t.mu.Lock()
	if t.flushing {
		t.mu.Unlock()
		return
	}
	t.flushing = true
	for len(t.outbox) > 0 {
		st := t.outbox[0]
		t.outbox = t.outbox[1:]
		observers := make([]*observer, len(t.observers))
		copy(observers, t.observers)
		t.mu.Unlock()

		for _, o := range observers {
			o.fn(st)
		}
		t.mu.Lock()
	}
	t.flushing = false
	t.mu.Unlock()
}
