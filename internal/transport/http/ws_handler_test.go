package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-grading-service/internal/analytics"
	"quiz-grading-service/internal/app"
	"quiz-grading-service/internal/domain"
	"quiz-grading-service/internal/grading"
	"quiz-grading-service/internal/infra/memory"
	"quiz-grading-service/internal/notify"
)

func TestWebSocketReceivesGradedNotification(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + env.server.URL[len("http"):] + "/ws?userId=5&topics=admin-notifications"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect subscription confirmation first.
	msg := readNext(t, conn)
	if msg.Type != "subscribed" {
		t.Fatalf("expected subscribed, got %s", msg.Type)
	}

	var sub domain.Submission
	env.do(t, http.MethodPost, "/submissions/start?quizId=10&userId=5", nil, http.StatusOK, &sub)
	env.do(t, http.MethodPost, "/submissions/"+sub.ID+"/submit", map[string]string{"1": "A", "2": "B"}, http.StatusOK, &sub)
	env.do(t, http.MethodPost, "/submissions/"+sub.ID+"/grade", nil, http.StatusOK, &sub)

	topics := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg := readNext(t, conn)
		if msg.Type != "notification" || msg.Payload["type"] != domain.NotificationSubmissionGraded {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.Payload["score"] != float64(3) || msg.Payload["submissionId"] != sub.ID {
			t.Fatalf("unexpected payload %+v", msg.Payload)
		}
		topics[msg.Topic] = true
	}
	if !topics["user-5"] || !topics[notify.TopicAdmin] {
		t.Fatalf("expected user and admin deliveries, got %v", topics)
	}
}

func TestRequestedTopics(t *testing.T) {
	cases := []struct {
		userID, raw string
		want        []string
	}{
		{"", "", []string{"notifications"}},
		{"7", "", []string{"user-7"}},
		{"7", "quizzes, user-7,,admin-notifications", []string{"user-7", "quizzes", "admin-notifications"}},
	}
	for _, tc := range cases {
		got := requestedTopics(tc.userID, tc.raw)
		if len(got) != len(tc.want) {
			t.Fatalf("requestedTopics(%q, %q) = %v, want %v", tc.userID, tc.raw, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("requestedTopics(%q, %q) = %v, want %v", tc.userID, tc.raw, got, tc.want)
			}
		}
	}
}

type wsMessage struct {
	Type    string         `json:"type"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
}

func readNext(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

type testEnv struct {
	server    *httptest.Server
	service   *app.SubmissionService
	hub       *notify.Hub
	events    *memory.EventLog
	analytics *memory.EventStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	pubsub := memory.NewPubSub()
	env := &testEnv{
		hub:       notify.NewHub(16),
		events:    memory.NewEventLog(nil),
		analytics: memory.NewEventStore(),
	}
	env.service = app.NewSubmissionService(memory.NewSubmissionStore(), env.events, memory.NewWorkQueue(64), pubsub, grading.NewEngine(quizzes), time.Second, nil)

	inbound, unsubscribe, _ := pubsub.Subscribe(ctx)
	t.Cleanup(unsubscribe)
	fanout := notify.NewFanOut(pubsub, env.hub, nil)
	go func() {
		for n := range inbound {
			fanout.Dispatch(n)
		}
	}()

	env.server = httptest.NewServer(NewRouter(RouterConfig{
		Submissions:    env.service,
		Hub:            env.hub,
		Analytics:      analytics.NewService(env.analytics),
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(env.server.Close)
	return env
}

// do sends body as JSON (nil sends no body), checks the status and decodes into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d", method, path, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"10": {
			ID:    "10",
			Title: "Basics",
			Questions: []domain.Question{
				{ID: "1", Text: "Pick A", Type: domain.QuestionMultipleChoice, Points: 1, Options: []string{"A", "B"}, CorrectAnswers: []string{"A"}},
				{ID: "2", Text: "Pick B or C", Type: domain.QuestionMultipleChoice, Points: 2, Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"B", "C"}},
			},
		},
	}
}

func analyticsRecorder(env *testEnv) *analytics.Recorder {
	return analytics.NewRecorder(env.analytics, nil)
}
