package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/retry"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/session"
)

// inputMode is what the keyboard is currently driving.
type inputMode int

const (
	modeBrowse inputMode = iota
	modeEditField
	modeEnterBatch
)

// AppConfig wires the App to the rest of the program. The App holds no
// client, cache, or store handle; every side effect goes through one of
// these closures, and every result comes back as a message.
type AppConfig struct {
	Session   *session.Session
	Policy    retry.Policy
	Candidate string

	// DefaultBatch is fetched on startup.
	DefaultBatch string

	// FetchBatch issues a fetch for batchID as the given 0-based
	// attempt. When invalidate is true the cache entry is dropped first
	// (manual refresh).
	FetchBatch func(batchID string, attempt int, invalidate bool) tea.Cmd

	// Validate sends the snapshot taken by Session.BeginValidate.
	Validate func(gen uint64, records []api.Record) tea.Cmd

	// Submit sends the request built by Session.BeginSubmit.
	Submit func(gen uint64, req api.SubmitRequest) tea.Cmd

	// LoadScore reads the last recorded submission for a batch from the
	// audit log. Optional.
	LoadScore func(batchID string) tea.Cmd

	// RecordSubmission appends an accepted submit to the audit log.
	// Optional.
	RecordSubmission func(req api.SubmitRequest, resp *api.SubmitResponse) tea.Cmd

	// InvalidateBatch drops a cache entry. Called after a successful
	// submit so the next fetch refetches.
	InvalidateBatch func(batchID string)
}

// App is the root Bubble Tea model.
type App struct {
	cfg  AppConfig
	sess *session.Session

	batchID string // currently requested batch id; stale-result guard
	cursor  int    // selected row
	field   int    // selected column, index into api.FieldNames

	mode       inputMode
	fieldInput textinput.Model
	batchInput textinput.Model
	inputErr   string // transient local input error (bad amount etc.)

	spin        spinner.Model
	fetching    bool
	retryAt     time.Time // when the scheduled auto-retry fires
	retryArmed  bool
	showPayload bool

	prevScore   string // last recorded score for this batch, from audit log
	width       int
	height      int
	ready       bool
}

// NewApp creates the root model.
func NewApp(cfg AppConfig) App {
	fi := textinput.New()
	fi.CharLimit = 256
	bi := textinput.New()
	bi.CharLimit = 64
	bi.Prompt = "batch id: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return App{
		cfg:        cfg,
		sess:       cfg.Session,
		batchID:    cfg.DefaultBatch,
		fieldInput: fi,
		batchInput: bi,
		spin:       sp,
	}
}

// Init fetches the default batch.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spin.Tick}
	if a.cfg.FetchBatch != nil {
		a.fetching = true
		cmds = append(cmds, a.cfg.FetchBatch(a.batchID, 0, false))
	}
	if a.cfg.LoadScore != nil {
		cmds = append(cmds, a.cfg.LoadScore(a.batchID))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case BatchLoaded:
		return a.handleBatchLoaded(msg)

	case RetryFetch:
		// A scheduled retry for a superseded batch id is dead.
		if msg.BatchID != a.batchID || a.cfg.FetchBatch == nil {
			return a, nil
		}
		a.retryArmed = false
		a.fetching = true
		return a, a.cfg.FetchBatch(msg.BatchID, msg.Attempt, false)

	case countdownTick:
		if !a.retryArmed {
			return a, nil
		}
		return a, tickCountdown()

	case ValidateDone:
		// A stale result (buffer replaced since issue) is discarded by
		// the session itself.
		a.sess.ApplyValidateResult(msg.Gen, msg.Resp, msg.Err)
		return a, nil

	case SubmitDone:
		return a.handleSubmitDone(msg)

	case ScoreHistoryLoaded:
		if msg.BatchID == a.batchID && msg.Err == nil && msg.Found {
			a.prevScore = fmt.Sprintf("%.2f", msg.Sub.Score)
		}
		return a, nil

	case SubmissionRecorded:
		// Audit write failures are logged by the closure; nothing to do.
		return a, nil
	}

	return a, nil
}

func (a App) handleBatchLoaded(msg BatchLoaded) (tea.Model, tea.Cmd) {
	// Discard a late response from a superseded fetch: the operator has
	// retargeted since this request was issued.
	if msg.BatchID != a.batchID {
		return a, nil
	}
	a.fetching = false

	if msg.Err == nil {
		a.sess.ApplyBatch(msg.Batch)
		a.cursor = 0
		a.field = 0
		a.retryArmed = false
		return a, nil
	}

	var apiErr *api.Error
	if !errors.As(msg.Err, &apiErr) {
		apiErr = &api.Error{Message: msg.Err.Error()}
	}
	a.sess.FetchFailed(apiErr, msg.Attempt)

	d := a.cfg.Policy.Decide(msg.Attempt, apiErr)
	if !d.Retry {
		a.retryArmed = false
		return a, nil
	}
	a.retryAt = time.Now().Add(d.Delay)
	a.retryArmed = true
	next := RetryFetch{BatchID: msg.BatchID, Attempt: msg.Attempt + 1}
	return a, tea.Batch(
		tea.Tick(d.Delay, func(time.Time) tea.Msg { return next }),
		tickCountdown(),
	)
}

func (a App) handleSubmitDone(msg SubmitDone) (tea.Model, tea.Cmd) {
	if err := a.sess.ApplySubmitResult(msg.Gen, msg.Resp, msg.Err); err != nil {
		return a, nil
	}
	// Accepted: the cached batch is stale now.
	if a.cfg.InvalidateBatch != nil {
		a.cfg.InvalidateBatch(msg.BatchID)
	}
	if a.cfg.RecordSubmission != nil {
		return a, a.cfg.RecordSubmission(msg.Req, msg.Resp)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.mode {
	case modeEditField:
		return a.handleEditKey(msg)
	case modeEnterBatch:
		return a.handleBatchKey(msg)
	}
	a.inputErr = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}

	case "down", "j":
		if a.cursor < a.sess.Len()-1 {
			a.cursor++
		}

	case "left", "h":
		if a.field > 0 {
			a.field--
		}

	case "right", "l", "tab":
		if a.field < len(api.FieldNames)-1 {
			a.field++
		} else if msg.String() == "tab" {
			a.field = 0
		}

	case "enter", "e":
		return a.startEdit()

	case "v":
		return a.startValidate()

	case "s":
		return a.startSubmit()

	case "r":
		// Manual retry: resets the attempt counter and bypasses the cache.
		if a.cfg.FetchBatch == nil {
			return a, nil
		}
		a.fetching = true
		a.retryArmed = false
		return a, a.cfg.FetchBatch(a.batchID, 0, true)

	case "b":
		a.mode = modeEnterBatch
		a.batchInput.SetValue(a.batchID)
		a.batchInput.Focus()
		return a, textinput.Blink

	case "p":
		a.showPayload = !a.showPayload
	}

	return a, nil
}

func (a App) startEdit() (tea.Model, tea.Cmd) {
	rec, ok := a.sess.Record(a.cursor)
	if !ok {
		return a, nil
	}
	a.mode = modeEditField
	a.fieldInput.SetValue(rec.FieldValue(api.FieldNames[a.field]))
	a.fieldInput.CursorEnd()
	a.fieldInput.Focus()
	return a, textinput.Blink
}

func (a App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		name := api.FieldNames[a.field]
		if err := a.sess.EditField(a.cursor, name, a.fieldInput.Value()); err != nil {
			a.inputErr = err.Error()
			return a, nil
		}
		a.mode = modeBrowse
		a.fieldInput.Blur()
		a.inputErr = ""
		return a, nil

	case "esc":
		a.mode = modeBrowse
		a.fieldInput.Blur()
		a.inputErr = ""
		return a, nil
	}

	var cmd tea.Cmd
	a.fieldInput, cmd = a.fieldInput.Update(msg)
	return a, cmd
}

func (a App) handleBatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		id := a.batchInput.Value()
		a.mode = modeBrowse
		a.batchInput.Blur()
		if id == "" || a.cfg.FetchBatch == nil {
			return a, nil
		}
		// Retargeting supersedes any outstanding fetch for the old id.
		a.batchID = id
		a.fetching = true
		a.retryArmed = false
		a.prevScore = ""
		cmds := []tea.Cmd{a.cfg.FetchBatch(id, 0, false)}
		if a.cfg.LoadScore != nil {
			cmds = append(cmds, a.cfg.LoadScore(id))
		}
		return a, tea.Batch(cmds...)

	case "esc":
		a.mode = modeBrowse
		a.batchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.batchInput, cmd = a.batchInput.Update(msg)
	return a, cmd
}

func (a App) startValidate() (tea.Model, tea.Cmd) {
	if a.cfg.Validate == nil {
		return a, nil
	}
	gen, records, err := a.sess.BeginValidate()
	if err != nil {
		a.inputErr = err.Error()
		return a, nil
	}
	return a, a.cfg.Validate(gen, records)
}

func (a App) startSubmit() (tea.Model, tea.Cmd) {
	if a.cfg.Submit == nil {
		return a, nil
	}
	if !a.sess.CanSubmit() {
		a.inputErr = "cannot submit: resolve errors and wait for pending operations"
		return a, nil
	}
	gen, req, err := a.sess.BeginSubmit(a.cfg.Candidate)
	if err != nil {
		a.inputErr = err.Error()
		return a, nil
	}
	return a, a.cfg.Submit(gen, req)
}

func tickCountdown() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownTick{} })
}

// BatchID returns the currently requested batch id (for testing).
func (a App) BatchID() string { return a.batchID }

// Cursor returns the selected row (for testing).
func (a App) Cursor() int { return a.cursor }
