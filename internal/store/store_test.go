package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLastSubmission(t *testing.T) {
	s := openTestStore(t)

	id, err := s.SaveSubmission(Submission{
		BatchID:   "1",
		Candidate: "jo",
		Score:     91.5,
		Message:   "ok",
		Payload:   `{"batch_id":"1"}`,
	})
	if err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}
	if id == 0 {
		t.Error("expected a row id")
	}

	sub, found, err := s.LastSubmission("1")
	if err != nil {
		t.Fatalf("LastSubmission: %v", err)
	}
	if !found {
		t.Fatal("expected submission to be found")
	}
	if sub.Score != 91.5 || sub.Candidate != "jo" || sub.Payload != `{"batch_id":"1"}` {
		t.Errorf("unexpected submission: %+v", sub)
	}
	if sub.CreatedAt.IsZero() {
		t.Error("created_at should be set automatically")
	}
}

func TestLastSubmissionMissing(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.LastSubmission("nope")
	if err != nil {
		t.Fatalf("LastSubmission: %v", err)
	}
	if found {
		t.Error("expected no submission")
	}
}

func TestLastSubmissionPicksNewest(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.SaveSubmission(Submission{BatchID: "1", Candidate: "jo", Score: 50, Payload: "{}", CreatedAt: base})
	s.SaveSubmission(Submission{BatchID: "1", Candidate: "jo", Score: 75, Payload: "{}", CreatedAt: base.Add(time.Hour)})

	sub, found, err := s.LastSubmission("1")
	if err != nil || !found {
		t.Fatalf("LastSubmission: %v found=%v", err, found)
	}
	if sub.Score != 75 {
		t.Errorf("expected newest score 75, got %v", sub.Score)
	}
}

func TestRecentSubmissions(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.SaveSubmission(Submission{
			BatchID:   "b",
			Candidate: "jo",
			Score:     float64(i),
			Payload:   "{}",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	subs, err := s.RecentSubmissions(3)
	if err != nil {
		t.Fatalf("RecentSubmissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3, got %d", len(subs))
	}
	if subs[0].Score != 4 || subs[2].Score != 2 {
		t.Errorf("expected newest first, got %v %v %v", subs[0].Score, subs[1].Score, subs[2].Score)
	}
}
