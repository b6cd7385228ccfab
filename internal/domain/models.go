package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle stage of a submission.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSubmitted  Status = "SUBMITTED"
	StatusGraded     Status = "GRADED"
)

// Submission is a student's attempt at a quiz.
// Score and MaxScore are non-nil only once Status is GRADED.
type Submission struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quizId"`
	UserID      string            `json:"userId"`
	Answers     map[string]string `json:"answers"`
	Score       *int              `json:"score"`
	MaxScore    *int              `json:"maxScore"`
	Status      Status            `json:"status"`
	StartedAt   time.Time         `json:"startedAt"`
	SubmittedAt *time.Time        `json:"submittedAt"`
	GradedAt    *time.Time        `json:"gradedAt"`
}

// Clone returns a deep copy so callers never share the answers map or pointer fields.
func (s Submission) Clone() Submission {
	out := s
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	out.Score = cloneInt(s.Score)
	out.MaxScore = cloneInt(s.MaxScore)
	out.SubmittedAt = cloneTime(s.SubmittedAt)
	out.GradedAt = cloneTime(s.GradedAt)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// QuestionType tags how a question is graded.
type QuestionType string

// QuestionMultipleChoice is the only type the grading engine awards points for.
const QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"

// Question models a quiz question with a set of acceptable answers.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Points         int          `json:"points"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []string     `json:"correctAnswers"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// GradingRequest is the payload carried by the grading queue and the /grade endpoint.
type GradingRequest struct {
	SubmissionID string            `json:"submissionId"`
	QuizID       string            `json:"quizId"`
	Answers      map[string]string `json:"answers"`
}

// GradingResponse is the outcome of grading one submission.
type GradingResponse struct {
	SubmissionID string `json:"submissionId"`
	Score        int    `json:"score"`
	MaxScore     int    `json:"maxScore"`
}

// Event types published on the event log.
const (
	EventSubmissionStarted   = "SUBMISSION_STARTED"
	EventSubmissionSubmitted = "SUBMISSION_SUBMITTED"
	EventSubmissionGraded    = "SUBMISSION_GRADED"
	EventQuizCreated         = "QUIZ_CREATED"
	EventQuizUpdated         = "QUIZ_UPDATED"
	EventQuizDeleted         = "QUIZ_DELETED"
	EventUserRegistered      = "USER_REGISTERED"
	EventUserLoggedIn        = "USER_LOGGED_IN"
)

// Event log topics.
const (
	TopicSubmissionEvents = "submission-events"
	TopicQuizEvents       = "quiz-events"
	TopicUserEvents       = "user-events"
)

// Event is an immutable fact appended to the event log.
type Event struct {
	Type       string
	Fields     map[string]any
	OccurredAt time.Time
}

// MarshalJSON flattens the event into a single object keyed by eventType.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["eventType"] = e.Type
	if !e.OccurredAt.IsZero() {
		flat["occurredAt"] = e.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(flat)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	e.Type, _ = flat["eventType"].(string)
	delete(flat, "eventType")
	if raw, ok := flat["occurredAt"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			e.OccurredAt = ts
		}
		delete(flat, "occurredAt")
	}
	e.Fields = flat
	return nil
}

// Field returns a named field rendered as a string.
func (e Event) Field(name string) string {
	return stringify(e.Fields[name])
}

// Notification types that the fan-out routes specially.
const (
	NotificationQuizCreated      = EventQuizCreated
	NotificationQuizUpdated      = EventQuizUpdated
	NotificationQuizDeleted      = EventQuizDeleted
	NotificationSubmissionGraded = EventSubmissionGraded
)

// Notification is a best-effort fan-out message.
type Notification struct {
	Type    string
	Payload map[string]any
}

// MarshalJSON writes the payload fields and the type tag side by side.
func (n Notification) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(n.Payload)+1)
	for k, v := range n.Payload {
		flat[k] = v
	}
	flat["type"] = n.Type
	return json.Marshal(flat)
}

// UnmarshalJSON accepts any JSON object; a missing or non-string type yields an empty Type.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	n.Type, _ = flat["type"].(string)
	delete(flat, "type")
	n.Payload = flat
	return nil
}

// UserID extracts the recipient user id from the payload, if any.
func (n Notification) UserID() (string, bool) {
	id := stringify(n.Payload["userId"])
	return id, id != ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}
