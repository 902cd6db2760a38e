package bulkorder

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the delay before the other surface is regenerated.
const DefaultDebounce = 500 * time.Millisecond

// EditorState names the surface the user last edited.
type EditorState string

const (
	StateIdle        EditorState = "idle"
	StateEditingRows EditorState = "editing-rows"
	StateEditingText EditorState = "editing-text"
)

// EditorView is a copy of the editor's surfaces.
type EditorView struct {
	State     EditorState  `json:"state"`
	Entries   []OrderEntry `json:"entries"`
	Text      string       `json:"text"`
	TextError *LineError   `json:"textError,omitempty"`
}

// EditorOption customises an Editor.
type EditorOption func(*Editor)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) EditorOption {
	return func(e *Editor) { e.clock = clock }
}

// WithDebounce sets the sync delay.
func WithDebounce(d time.Duration) EditorOption {
	return func(e *Editor) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithOnSync registers a callback run after each derivation, outside the lock.
func WithOnSync(fn func(EditorView)) EditorOption {
	return func(e *Editor) { e.onSync = fn }
}

// Editor keeps the row editor and the paste box consistent. Each surface
// owns one pending timer; a new edit cancels and replaces it. When a timer
// fires, only the other surface is regenerated, and only if the user has
// not moved to that surface in the meantime.
type Editor struct {
	clock  clockwork.Clock
	delay  time.Duration
	onSync func(EditorView)

	mu         sync.Mutex
	state      EditorState
	entries    []OrderEntry
	text       string
	textErr    *LineError
	rowsTimer  clockwork.Timer
	textTimer  clockwork.Timer
	pending    EditorState
	generation uint64
	closed     bool
}

// NewEditor returns an idle editor with empty surfaces.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{clock: clockwork.NewRealClock(), delay: DefaultDebounce, state: StateIdle}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FocusRows marks the row editor as the active surface.
func (e *Editor) FocusRows() {
	e.focus(StateEditingRows)
}

// FocusText marks the paste box as the active surface.
func (e *Editor) FocusText() {
	e.focus(StateEditingText)
}

func (e *Editor) focus(state EditorState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.state = state
	}
}

// EditRows replaces the rows and schedules the text to be derived from them.
func (e *Editor) EditRows(entries []OrderEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.state = StateEditingRows
	e.entries = slices.Clone(entries)
	e.pending = StateEditingRows
	e.generation++
	gen := e.generation
	stopTimer(e.rowsTimer)
	e.rowsTimer = e.clock.AfterFunc(e.delay, func() { e.fire(StateEditingRows, gen) })
}

// EditText replaces the text and schedules the rows to be derived from it.
func (e *Editor) EditText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.state = StateEditingText
	e.text = text
	e.pending = StateEditingText
	e.generation++
	gen := e.generation
	stopTimer(e.textTimer)
	e.textTimer = e.clock.AfterFunc(e.delay, func() { e.fire(StateEditingText, gen) })
}

// Flush runs any pending derivation immediately, e.g. before submitting.
func (e *Editor) Flush() EditorView {
	e.mu.Lock()
	stopTimer(e.rowsTimer)
	stopTimer(e.textTimer)
	e.rowsTimer, e.textTimer = nil, nil
	source := e.pending
	e.pending = ""
	e.generation++
	synced := source != "" && source == e.state && !e.closed
	if synced {
		e.deriveLocked(source)
	}
	view := e.viewLocked()
	e.mu.Unlock()

	if synced && e.onSync != nil {
		e.onSync(view)
	}
	return view
}

// Clear empties both surfaces and cancels pending timers.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	stopTimer(e.rowsTimer)
	stopTimer(e.textTimer)
	e.rowsTimer, e.textTimer = nil, nil
	e.generation++
	e.pending = ""
	e.entries = nil
	e.text = ""
	e.textErr = nil
	e.state = StateIdle
}

// Close cancels pending timers; later edits are ignored.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	stopTimer(e.rowsTimer)
	stopTimer(e.textTimer)
	e.rowsTimer, e.textTimer = nil, nil
	e.closed = true
}

// View returns a copy of the current surfaces.
func (e *Editor) View() EditorView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Editor) fire(source EditorState, gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.rowsTimer, e.textTimer = nil, nil
	e.pending = ""
	// The user moved to the other surface before the delay elapsed.
	if e.state != source {
		e.mu.Unlock()
		return
	}
	e.deriveLocked(source)
	view := e.viewLocked()
	e.mu.Unlock()

	if e.onSync != nil {
		e.onSync(view)
	}
}

func (e *Editor) deriveLocked(source EditorState) {
	switch source {
	case StateEditingRows:
		e.text = EntriesToText(e.entries)
		e.textErr = nil
	case StateEditingText:
		if err := ValidatePasteText(e.text); err != nil {
			e.textErr = err
			return
		}
		e.textErr = nil
		e.entries = TextToEntries(e.text)
	default:
		return
	}
	e.state = StateIdle
}

func (e *Editor) viewLocked() EditorView {
	view := EditorView{State: e.state, Entries: slices.Clone(e.entries), Text: e.text}
	if e.textErr != nil {
		errCopy := *e.textErr
		view.TextError = &errCopy
	}
	return view
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}
