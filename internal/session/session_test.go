package session

import (
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
)

func testBatch() *api.Batch {
	return &api.Batch{
		BatchID:     "1",
		CandidateID: "cand-1",
		Items: []api.Record{
			{
				CleanedRecord: api.CleanedRecord{DocID: "D-0", Type: "invoice", Counterparty: "Acme", Project: "alpha", ExpiryDate: "2026-01-01", Amount: 10},
				SourceIndex:   0, IsValid: true,
			},
			{
				CleanedRecord: api.CleanedRecord{DocID: "D-1", Type: "po", Counterparty: "Globex", Project: "beta", ExpiryDate: "bad-date", Amount: 20},
				Errors:        []string{"Item 1: Invalid date"},
				Warnings:      []string{"uncommon counterparty"},
				SourceIndex:   1,
			},
			{
				CleanedRecord: api.CleanedRecord{DocID: "D-2", Type: "invoice", Counterparty: "Initech", Project: "gamma", ExpiryDate: "2026-03-01", Amount: 30},
				SourceIndex:   2, IsValid: true,
			},
		},
		Summary: api.Summary{RawItems: 4, NormalizedItems: 3, DuplicatesRemoved: 1, ItemsWithErrors: 1},
	}
}

func TestApplyBatchSeedsBuffer(t *testing.T) {
	s := New()
	if s.Phase() != PhaseEmpty {
		t.Fatalf("new session should be empty, got %v", s.Phase())
	}

	s.ApplyBatch(testBatch())
	if s.Phase() != PhaseLoaded {
		t.Errorf("expected loaded, got %v", s.Phase())
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", s.Len())
	}

	// Pre-existing normalization error lands in the row view, attributed
	// to expiry_date at field level.
	byField, rowOnly := s.FieldErrors(1)
	if len(rowOnly) != 0 {
		t.Errorf("unexpected row-only details: %v", rowOnly)
	}
	if got := byField["expiry_date"]; len(got) != 1 || got[0] != "Invalid date" {
		t.Errorf("expected expiry_date error on row 1, got %v", byField)
	}
	if s.RowIssueCount(0) != 0 || s.RowIssueCount(2) != 0 {
		t.Error("clean rows must carry no issues")
	}
}

func TestFetchIdempotent(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())
	first := s.Records()

	// Edits between fetches are discarded: fetch replaces wholesale.
	if err := s.EditField(0, "counterparty", "Changed Inc"); err != nil {
		t.Fatalf("EditField: %v", err)
	}
	s.ApplyBatch(testBatch())
	second := s.Records()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-fetching identical data must yield an identical buffer\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEditFieldClearsRowErrorsImmediately(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())

	// No network round trip involved: clearing is optimistic.
	if err := s.EditField(1, "expiry_date", "2026-06-01"); err != nil {
		t.Fatalf("EditField: %v", err)
	}
	if s.RowIssueCount(1) != 0 {
		t.Error("row error list must clear on edit")
	}
	rec, _ := s.Record(1)
	if len(rec.Errors) != 0 || !rec.IsValid {
		t.Errorf("record should be provisionally valid after edit: %+v", rec)
	}
	if rec.ExpiryDate != "2026-06-01" {
		t.Errorf("edit not applied: %q", rec.ExpiryDate)
	}
	// Other rows untouched.
	other, _ := s.Record(2)
	if other.DocID != "D-2" {
		t.Errorf("unrelated row mutated: %+v", other)
	}
	if s.Phase() != PhaseEditing {
		t.Errorf("expected editing phase, got %v", s.Phase())
	}
}

func TestEditFieldRejectsBadInput(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())
	if err := s.EditField(0, "amount", "minus four"); err == nil {
		t.Error("expected error for unparseable amount")
	}
	if err := s.EditField(99, "amount", "4"); err == nil {
		t.Error("expected error for out-of-range row")
	}
	// Failed edits leave the buffer alone.
	rec, _ := s.Record(0)
	if rec.Amount != 10 {
		t.Errorf("amount changed by failed edit: %v", rec.Amount)
	}
}

func TestValidateMergePreservesWarningsAndSourceIndex(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())

	gen, records, err := s.BeginValidate()
	if err != nil {
		t.Fatalf("BeginValidate: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("snapshot should cover the full buffer, got %d", len(records))
	}
	if s.Phase() != PhaseValidating {
		t.Errorf("expected validating, got %v", s.Phase())
	}

	resp := &api.ValidateResponse{
		CleanedItems: []api.CleanedRecord{
			{DocID: "D-0", Type: "invoice", Counterparty: "ACME CORP", Project: "alpha", ExpiryDate: "2026-01-01", Amount: 10},
			{DocID: "D-1", Type: "po", Counterparty: "GLOBEX", Project: "beta", ExpiryDate: "2026-06-01", Amount: 20},
			{DocID: "D-2", Type: "invoice", Counterparty: "INITECH", Project: "gamma", ExpiryDate: "2026-03-01", Amount: 30},
		},
		Errors: []string{"Item 0: Amount must be positive", "General failure"},
	}
	if err := s.ApplyValidateResult(gen, resp, nil); err != nil {
		t.Fatalf("ApplyValidateResult: %v", err)
	}

	// Cleaned fields win.
	rec, _ := s.Record(1)
	if rec.Counterparty != "GLOBEX" || rec.ExpiryDate != "2026-06-01" {
		t.Errorf("cleaned fields not merged: %+v", rec)
	}
	// Fields validate does not return must survive.
	if len(rec.Warnings) != 1 || rec.Warnings[0] != "uncommon counterparty" {
		t.Errorf("warnings lost in merge: %v", rec.Warnings)
	}
	if rec.SourceIndex != 1 {
		t.Errorf("source_index lost in merge: %d", rec.SourceIndex)
	}

	// Output length matches input length.
	if s.Len() != 3 {
		t.Errorf("merge changed buffer length: %d", s.Len())
	}

	// Mapped errors repopulate the row view; the rest go global.
	if got := s.RowErrors(); len(got[0]) != 1 || got[0][0] != "Amount must be positive" {
		t.Errorf("row errors = %v", got)
	}
	if global := s.GlobalErrors(); len(global) != 1 || global[0] != "General failure" {
		t.Errorf("global errors = %v", global)
	}
	rec0, _ := s.Record(0)
	if rec0.IsValid {
		t.Error("row with errors must not be valid")
	}
	if s.Phase() != PhaseValidatedWithErrors {
		t.Errorf("expected validated-with-errors, got %v", s.Phase())
	}
}

func TestValidateCleanOutcome(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	gen, records, _ := s.BeginValidate()
	resp := &api.ValidateResponse{CleanedItems: make([]api.CleanedRecord, len(records))}
	for i, r := range records {
		resp.CleanedItems[i] = r.Cleaned()
	}
	if err := s.ApplyValidateResult(gen, resp, nil); err != nil {
		t.Fatalf("ApplyValidateResult: %v", err)
	}
	if s.Phase() != PhaseValidatedClean {
		t.Errorf("expected validated clean, got %v", s.Phase())
	}
	if !s.CanSubmit() {
		t.Error("clean validation should open the gate")
	}
}

func TestValidateFailureLeavesBufferUntouched(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())
	before := s.Records()

	gen, _, _ := s.BeginValidate()
	callErr := &api.Error{StatusCode: 500, Message: "HTTP 500: broke"}
	if err := s.ApplyValidateResult(gen, nil, callErr); err == nil {
		t.Fatal("expected the call error back")
	}

	if !reflect.DeepEqual(before, s.Records()) {
		t.Error("buffer must be exactly as before the failed call")
	}
	if s.Status() != "HTTP 500: broke" {
		t.Errorf("failure message should surface, got %q", s.Status())
	}
}

func TestValidateLengthMismatchRejected(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())
	before := s.Records()

	gen, _, _ := s.BeginValidate()
	resp := &api.ValidateResponse{CleanedItems: []api.CleanedRecord{{DocID: "D-0"}}}
	if err := s.ApplyValidateResult(gen, resp, nil); err == nil {
		t.Fatal("expected error for misaligned response")
	}
	if !reflect.DeepEqual(before, s.Records()) {
		t.Error("misaligned response must not be merged")
	}
}

func TestStaleValidateResultDiscarded(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch())
	gen, records, _ := s.BeginValidate()

	// A new fetch replaces the buffer while the validate is in flight.
	s.ApplyBatch(testBatch())
	after := s.Records()

	resp := &api.ValidateResponse{CleanedItems: make([]api.CleanedRecord, len(records))}
	if err := s.ApplyValidateResult(gen, resp, nil); err != ErrStale {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if !reflect.DeepEqual(after, s.Records()) {
		t.Error("stale result must not touch the replaced buffer")
	}
}

func TestSubmissionGate(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	if !s.CanSubmit() {
		t.Fatal("clean loaded buffer should allow submit")
	}

	// Any row with a non-empty error list closes the gate, regardless of
	// global error state.
	gen, _, _ := s.BeginValidate()
	s.ApplyValidateResult(gen, &api.ValidateResponse{
		CleanedItems: []api.CleanedRecord{{}, {}, {}},
		Errors:       []string{"Item 2: Invalid date"},
	}, nil)
	if s.CanSubmit() {
		t.Error("row errors must close the gate")
	}

	// Editing the offending row reopens it (row errors clear on edit).
	s.EditField(2, "expiry_date", "2026-09-01")
	if !s.CanSubmit() {
		t.Error("gate should reopen once row errors clear")
	}

	// A pending validate closes the gate.
	s.BeginValidate()
	if s.CanSubmit() {
		t.Error("pending validate must close the gate")
	}
}

func TestGateClosedBeforeAnyBatch(t *testing.T) {
	s := New()
	if s.CanSubmit() {
		t.Error("empty buffer must close the gate")
	}
}

func TestGateClosedByGlobalErrors(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	gen, _, _ := s.BeginValidate()
	s.ApplyValidateResult(gen, &api.ValidateResponse{
		CleanedItems: []api.CleanedRecord{{}, {}, {}},
		Errors:       []string{"General failure"},
	}, nil)
	if s.CanSubmit() {
		t.Error("global errors must close the gate")
	}
}

func TestGateClosedByFetchFailure(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	s.FetchFailed(&api.Error{Message: "down"}, 0)
	if s.CanSubmit() {
		t.Error("unresolved fetch failure must close the gate")
	}
	if s.RetryState() == nil {
		t.Fatal("expected retry state after failure")
	}

	// Any successful fetch clears it.
	s.ApplyBatch(b)
	if s.RetryState() != nil {
		t.Error("retry state must clear on fetch success")
	}
	if !s.CanSubmit() {
		t.Error("gate should reopen after successful fetch")
	}
}

func TestSubmitProjection(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	gen, req, err := s.BeginSubmit("jo")
	if err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	if req.CandidateName != "jo" || req.BatchID != "1" {
		t.Errorf("unexpected envelope: %+v", req)
	}
	if len(req.CleanedItems) != 3 {
		t.Fatalf("expected 3 cleaned items, got %d", len(req.CleanedItems))
	}
	if req.CleanedItems[1].DocID != "D-1" || req.CleanedItems[1].Amount != 20 {
		t.Errorf("projection wrong: %+v", req.CleanedItems[1])
	}
	if s.Phase() != PhaseSubmitting {
		t.Errorf("expected submitting, got %v", s.Phase())
	}

	resp := &api.SubmitResponse{ScoreResponse: api.ScoreResponse{Score: 88.5, Message: "ok"}}
	if err := s.ApplySubmitResult(gen, resp, nil); err != nil {
		t.Fatalf("ApplySubmitResult: %v", err)
	}
	if s.Phase() != PhaseSubmitted {
		t.Errorf("expected submitted, got %v", s.Phase())
	}
	if sc := s.LastScore(); sc == nil || sc.Score != 88.5 {
		t.Errorf("score not recorded: %+v", sc)
	}
}

func TestSubmitWhileGateClosed(t *testing.T) {
	s := New()
	s.ApplyBatch(testBatch()) // row 1 carries an error
	if _, _, err := s.BeginSubmit("jo"); err == nil {
		t.Error("BeginSubmit must refuse while the gate is closed")
	}
}

func TestSubmitUpstreamUnavailableMessage(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	gen, _, _ := s.BeginSubmit("jo")
	callErr := &api.Error{
		StatusCode:     http.StatusBadGateway,
		Message:        "HTTP 502: bad gateway",
		UpstreamStatus: http.StatusBadGateway,
	}
	s.ApplySubmitResult(gen, nil, callErr)

	status := s.Status()
	if !strings.Contains(status, "edits are preserved") || !strings.Contains(status, "retrying is safe") {
		t.Errorf("502/503 must reassure the operator, got %q", status)
	}
	// Buffer intact.
	if s.Len() != 3 {
		t.Error("failed submit must not touch the buffer")
	}
}

func TestStaleSubmitResultDiscarded(t *testing.T) {
	s := New()
	b := testBatch()
	b.Items[1].Errors = nil
	s.ApplyBatch(b)

	gen, _, _ := s.BeginSubmit("jo")
	s.ApplyBatch(testBatch()) // buffer replaced while submit in flight

	resp := &api.SubmitResponse{ScoreResponse: api.ScoreResponse{Score: 10}}
	if err := s.ApplySubmitResult(gen, resp, nil); err != ErrStale {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if s.LastScore() != nil {
		t.Error("stale submit result must not record a score")
	}
}

func TestSubscribeNotifications(t *testing.T) {
	s := New()
	var n int
	s.Subscribe(func() { n++ })

	s.ApplyBatch(testBatch())
	s.EditField(0, "project", "delta")
	if n < 2 {
		t.Errorf("expected a notification per transition, got %d", n)
	}

	before := n
	s.EditField(99, "project", "x") // failed edit commits nothing
	if n != before {
		t.Error("failed transitions must not notify")
	}
}
