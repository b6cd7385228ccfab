package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventJSONIsFlat(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{Type: EventSubmissionGraded, Fields: map[string]any{"submissionId": "s1", "score": 3}, OccurredAt: at}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["eventType"] != EventSubmissionGraded || flat["submissionId"] != "s1" {
		t.Fatalf("unexpected wire form %s", raw)
	}

	var back Event
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if back.Type != EventSubmissionGraded || !back.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", back)
	}
	if _, ok := back.Fields["eventType"]; ok {
		t.Fatalf("eventType should not remain in fields")
	}
	if back.Field("score") != "3" {
		t.Fatalf("expected score field 3, got %q", back.Field("score"))
	}
}

func TestNotificationWithoutTypeDecodes(t *testing.T) {
	var n Notification
	if err := json.Unmarshal([]byte(`{"message":"hi","userId":42}`), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Type != "" {
		t.Fatalf("expected empty type, got %q", n.Type)
	}
	id, ok := n.UserID()
	if !ok || id != "42" {
		t.Fatalf("expected numeric user id rendered as 42, got %q %v", id, ok)
	}

	var typed Notification
	if err := json.Unmarshal([]byte(`{"type":7}`), &typed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typed.Type != "" {
		t.Fatalf("non-string type should be ignored, got %q", typed.Type)
	}
	if _, ok := typed.UserID(); ok {
		t.Fatalf("expected no user id")
	}
}

func TestSubmissionCloneIsDeep(t *testing.T) {
	score := 2
	sub := Submission{ID: "s1", Answers: map[string]string{"q1": "A"}, Score: &score}
	c := sub.Clone()
	c.Answers["q1"] = "B"
	*c.Score = 9
	if sub.Answers["q1"] != "A" || *sub.Score != 2 {
		t.Fatalf("clone shares state with original: %+v", sub)
	}
}
