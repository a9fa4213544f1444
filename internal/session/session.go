// Package session owns the mutable edit buffer for one batch-cleaning
// session: the list of editable records, the per-row and global error
// views derived from server responses, and the lifecycle transitions
// driven by fetch/validate/submit outcomes.
//
// Exactly one Session owns the buffer. All mutations go through its
// methods and commit atomically under the lock; after every committed
// transition the session notifies subscribers, who re-read derived state
// (CanSubmit, FieldErrors, Status) rather than receiving deltas.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/logging"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/retry"
)

// Phase is the lifecycle state of the edit buffer.
type Phase int

const (
	PhaseEmpty Phase = iota // no batch loaded
	PhaseLoaded             // batch fetched, buffer seeded
	PhaseEditing            // operator has changed at least one field
	PhaseValidating         // validate in flight
	PhaseValidatedClean
	PhaseValidatedWithErrors
	PhaseSubmitting // submit in flight
	PhaseSubmitted  // terminal for the session until the next fetch
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoaded:
		return "loaded"
	case PhaseEditing:
		return "editing"
	case PhaseValidating:
		return "validating"
	case PhaseValidatedClean:
		return "validated"
	case PhaseValidatedWithErrors:
		return "validated with errors"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSubmitted:
		return "submitted"
	}
	return "unknown"
}

// ErrStale is returned when a response is discarded because the buffer it
// was issued against has since been replaced.
var ErrStale = errors.New("response superseded by a newer batch")

// Session is the edit buffer state machine.
type Session struct {
	mu sync.Mutex

	phase   Phase
	batch   *api.Batch // last fetched snapshot, nil before first fetch
	records []api.Record

	rowErrors    map[int][]string
	globalErrors []string
	status       string

	retryState  *retry.State
	fetchFailed bool

	validating bool
	submitting bool

	// generation counts wholesale buffer replacements. In-flight
	// validate/submit operations capture it at issue time so a response
	// for a superseded buffer can be recognized and discarded.
	generation uint64

	lastScore   *api.ScoreResponse
	lastPayload json.RawMessage

	subs []func()
}

// New creates an empty session.
func New() *Session {
	return &Session{
		phase:     PhaseEmpty,
		rowErrors: make(map[int][]string),
	}
}

// Subscribe registers fn to run after every committed transition.
// Subscribers must not call back into the session synchronously with
// mutating methods.
func (s *Session) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// notify runs outside the lock.
func (s *Session) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// ApplyBatch replaces the buffer wholesale from a fetched batch: one
// record per normalized item, all row and global errors cleared, retry
// state cleared. Never a merge, so no stale state survives a batch
// switch. Pre-existing per-record errors from normalization are re-seeded
// into the row error view.
func (s *Session) ApplyBatch(b *api.Batch) {
	s.mu.Lock()
	s.batch = b
	s.records = make([]api.Record, len(b.Items))
	copy(s.records, b.Items)
	for i := range s.records {
		s.records[i].Errors = append([]string(nil), b.Items[i].Errors...)
		s.records[i].Warnings = append([]string(nil), b.Items[i].Warnings...)
	}
	s.rowErrors = make(map[int][]string)
	s.globalErrors = nil
	s.seedRowErrorsLocked()
	s.status = fmt.Sprintf("loaded batch %s: %d records", b.BatchID, len(s.records))
	s.retryState = nil
	s.fetchFailed = false
	s.validating = false
	s.submitting = false
	s.generation++
	s.phase = PhaseLoaded
	s.mu.Unlock()

	logging.Info("batch loaded", "batch", b.BatchID, "records", len(b.Items),
		"duplicates_removed", b.Summary.DuplicatesRemoved, "with_errors", b.Summary.ItemsWithErrors)
	s.notify()
}

// seedRowErrorsLocked maps the normalization errors the server attached
// to each record into the row error view. A string carrying an explicit
// "Item N" prefix is placed at N (the server's index realigned via the
// flat form); anything else stays with the record it arrived on.
func (s *Session) seedRowErrorsLocked() {
	for i := range s.records {
		for _, e := range s.records[i].Errors {
			rows, rest := MapRowErrors([]string{e})
			if len(rows) == 0 {
				s.rowErrors[i] = append(s.rowErrors[i], rest...)
				continue
			}
			for n, details := range rows {
				if n >= 0 && n < len(s.records) {
					s.rowErrors[n] = append(s.rowErrors[n], details...)
				} else {
					s.globalErrors = append(s.globalErrors, e)
				}
			}
		}
	}
}

// FetchFailed records a fetch failure at the given 0-based attempt
// number. The buffer, if any, is untouched.
func (s *Session) FetchFailed(err *api.Error, attempt int) {
	s.mu.Lock()
	s.retryState = retry.NewState(attempt, err)
	s.fetchFailed = true
	s.status = err.Message
	s.mu.Unlock()

	logging.Warn("fetch failed", "attempt", attempt, "err", err.Message)
	s.notify()
}

// EditField mutates exactly one field of exactly one record. The row's
// error list is cleared immediately, before any network round trip, on
// the optimistic assumption that the edit resolves the reported issue.
//
// Edits during an in-flight validate or submit are allowed; the response,
// when it arrives, applies positionally and may overwrite this edit.
func (s *Session) EditField(row int, field, value string) error {
	s.mu.Lock()
	if row < 0 || row >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("row %d out of range", row)
	}
	if err := s.records[row].SetFieldValue(field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[row].Errors = nil
	s.records[row].IsValid = true
	delete(s.rowErrors, row)
	if s.phase == PhaseLoaded || s.phase == PhaseValidatedClean ||
		s.phase == PhaseValidatedWithErrors || s.phase == PhaseSubmitted {
		s.phase = PhaseEditing
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// BeginValidate marks a validate operation in flight and returns the
// buffer snapshot to send (positional order) together with the
// generation to pass back to ApplyValidateResult.
func (s *Session) BeginValidate() (gen uint64, records []api.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return 0, nil, errors.New("no batch loaded")
	}
	if s.validating {
		return 0, nil, errors.New("validate already in flight")
	}
	s.validating = true
	s.phase = PhaseValidating
	s.status = "validating..."
	snap := make([]api.Record, len(s.records))
	copy(snap, s.records)
	return s.generation, snap, nil
}

// ApplyValidateResult applies the outcome of a validate call issued at
// generation gen. A result for a superseded buffer is discarded. On
// failure the buffer is left exactly as it was before the call; only the
// status message changes.
func (s *Session) ApplyValidateResult(gen uint64, resp *api.ValidateResponse, callErr error) error {
	s.mu.Lock()
	s.validating = false
	if gen != s.generation {
		s.mu.Unlock()
		logging.Debug("validate result discarded", "gen", gen)
		return ErrStale
	}
	if callErr != nil {
		s.status = callErr.Error()
		s.phase = PhaseEditing
		s.mu.Unlock()
		s.notify()
		return callErr
	}
	if len(resp.CleanedItems) != len(s.records) {
		err := fmt.Errorf("validation returned %d items for %d records", len(resp.CleanedItems), len(s.records))
		s.status = err.Error()
		s.phase = PhaseEditing
		s.mu.Unlock()
		s.notify()
		return err
	}

	// Cleaned fields win; warnings and source_index are not returned by
	// validate and must survive the merge.
	for i, cleaned := range resp.CleanedItems {
		s.records[i].CleanedRecord = cleaned
		s.records[i].Errors = nil
		s.records[i].IsValid = true
	}

	rows, global := MapRowErrors(resp.Errors)
	s.rowErrors = make(map[int][]string)
	s.globalErrors = global
	for n, details := range rows {
		if n < 0 || n >= len(s.records) {
			for _, d := range details {
				s.globalErrors = append(s.globalErrors, fmt.Sprintf("Item %d: %s", n, d))
			}
			continue
		}
		s.rowErrors[n] = details
		s.records[n].Errors = append([]string(nil), details...)
		s.records[n].IsValid = false
	}

	if len(s.rowErrors) == 0 && len(s.globalErrors) == 0 {
		s.phase = PhaseValidatedClean
		s.status = "validation clean"
	} else {
		s.phase = PhaseValidatedWithErrors
		s.status = fmt.Sprintf("validation found issues in %d row(s)", len(s.rowErrors))
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// BeginSubmit gates and starts a submit. Only the six persisted fields
// are sent; errors, warnings, source_index and is_valid never leave the
// client.
func (s *Session) BeginSubmit(candidate string) (gen uint64, req api.SubmitRequest, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canSubmitLocked() {
		return 0, api.SubmitRequest{}, errors.New("submission not currently allowed")
	}
	if s.batch == nil {
		return 0, api.SubmitRequest{}, errors.New("no batch loaded")
	}
	cleaned := make([]api.CleanedRecord, len(s.records))
	for i, r := range s.records {
		cleaned[i] = r.Cleaned()
	}
	s.submitting = true
	s.phase = PhaseSubmitting
	s.status = "submitting..."
	return s.generation, api.SubmitRequest{
		CandidateName: candidate,
		BatchID:       s.batch.BatchID,
		CleanedItems:  cleaned,
	}, nil
}

// ApplySubmitResult applies a submit outcome issued at generation gen.
// On a 502/503 the status message states explicitly that edits are
// preserved and retrying is safe.
func (s *Session) ApplySubmitResult(gen uint64, resp *api.SubmitResponse, callErr error) error {
	s.mu.Lock()
	s.submitting = false
	if gen != s.generation {
		s.mu.Unlock()
		logging.Debug("submit result discarded", "gen", gen)
		return ErrStale
	}
	if callErr != nil {
		var apiErr *api.Error
		if errors.As(callErr, &apiErr) && apiErr.UpstreamUnavailable() {
			s.status = fmt.Sprintf("scoring service unavailable — your edits are preserved, retrying is safe (%s)", apiErr.Message)
		} else {
			s.status = callErr.Error()
		}
		s.phase = PhaseEditing
		s.mu.Unlock()
		s.notify()
		return callErr
	}

	s.lastScore = &resp.ScoreResponse
	s.lastPayload = resp.Payload
	s.phase = PhaseSubmitted
	if resp.ScoreResponse.Message != "" {
		s.status = fmt.Sprintf("submitted: score %.2f — %s", resp.ScoreResponse.Score, resp.ScoreResponse.Message)
	} else {
		s.status = fmt.Sprintf("submitted: score %.2f", resp.ScoreResponse.Score)
	}
	s.mu.Unlock()

	logging.Info("submitted", "score", resp.ScoreResponse.Score)
	s.notify()
	return nil
}

// CanSubmit is the submission gate: a loaded non-empty buffer, no submit
// pending, no validate pending, zero non-empty row-error entries, no
// global errors, and no unresolved fetch failure. Pure read of current
// state.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

func (s *Session) canSubmitLocked() bool {
	if len(s.records) == 0 {
		return false
	}
	if s.submitting || s.validating || s.fetchFailed {
		return false
	}
	for _, details := range s.rowErrors {
		if len(details) > 0 {
			return false
		}
	}
	return len(s.globalErrors) == 0
}

// Phase returns the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Generation returns the current buffer generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Records returns a copy of the edit buffer.
func (s *Session) Records() []api.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Record returns one record by position.
func (s *Session) Record(row int) (api.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 0 || row >= len(s.records) {
		return api.Record{}, false
	}
	return s.records[row], true
}

// Len returns the number of records in the buffer.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Batch returns the last fetched snapshot, or nil.
func (s *Session) Batch() *api.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// RowErrors returns a copy of the row-indexed error map.
func (s *Session) RowErrors() map[int][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int][]string, len(s.rowErrors))
	for k, v := range s.rowErrors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// GlobalErrors returns the errors not attributable to any row.
func (s *Session) GlobalErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.globalErrors...)
}

// FieldErrors returns one row's errors grouped by attributed field, plus
// the details that matched no field (shown at row level only).
func (s *Session) FieldErrors(row int) (byField map[string][]string, rowOnly []string) {
	s.mu.Lock()
	details := append([]string(nil), s.rowErrors[row]...)
	s.mu.Unlock()
	return fieldErrors(details)
}

// RowIssueCount returns how many error details a row carries, whether or
// not they attributed to a field.
func (s *Session) RowIssueCount(row int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rowErrors[row])
}

// Status returns the one-line human-readable status message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus overrides the status line (used for operator hints).
func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	s.notify()
}

// RetryState returns the fetch retry state, or nil when the last fetch
// succeeded.
func (s *Session) RetryState() *retry.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryState
}

// Pending reports which operations are in flight.
func (s *Session) Pending() (validating, submitting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validating, s.submitting
}

// LastScore returns the most recent scoring result, or nil.
func (s *Session) LastScore() *api.ScoreResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScore
}

// LastPayload returns the server's echo of the last submitted payload.
func (s *Session) LastPayload() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload
}
