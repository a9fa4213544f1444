// Package ui provides the Bubble Tea terminal interface for the cleaning
// workflow. The App model holds no client or store handles; it receives
// results via messages produced by command closures injected from main.
package ui

import (
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/store"
)

// BatchLoaded is sent when a batch fetch finishes. BatchID is the id the
// fetch was issued for; a result for a superseded id is dropped.
type BatchLoaded struct {
	BatchID string
	Attempt int // 0-based attempt this fetch was issued as
	Batch   *api.Batch
	Err     error
}

// RetryFetch fires when a scheduled automatic retry comes due.
type RetryFetch struct {
	BatchID string
	Attempt int
}

// ValidateDone is sent when a validate call finishes. Gen is the session
// generation captured when the call was issued.
type ValidateDone struct {
	Gen  uint64
	Resp *api.ValidateResponse
	Err  error
}

// SubmitDone is sent when a submit call finishes.
type SubmitDone struct {
	Gen     uint64
	BatchID string
	Req     api.SubmitRequest
	Resp    *api.SubmitResponse
	Err     error
}

// ScoreHistoryLoaded carries the last recorded submission for the
// current batch from the audit log.
type ScoreHistoryLoaded struct {
	BatchID string
	Sub     store.Submission
	Found   bool
	Err     error
}

// SubmissionRecorded is sent after the audit log write completes.
type SubmissionRecorded struct {
	Err error
}

// countdownTick drives the retry countdown in the status bar.
type countdownTick struct{}
