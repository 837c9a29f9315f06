package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/gorilla/websocket"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/civil"
	"github.com/md-rashed-zaman/agenda/services/scheduling-service/internal/model"
	"github.com/segmentio/kafka-go"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(11) 98765-4321":   "5511987654321",
		"+55 11 98765-4321": "5511987654321",
		"55 51 3333-4444":   "555133334444",
		"51 3333-4444":      "555133334444",
		"sem telefone":      "",
		"":                  "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessages(t *testing.T) {
	a := model.Appointment{
		ClientName: "Gabriel Silva", Service: "Corte",
		Date: civil.Date{Year: 2024, Month: time.January, Day: 1}, StartTime: civil.MustClock("10:00"),
	}
	if msg := SeriesCancellationMessage(a, 4); !strings.Contains(msg, "4 agendamentos") || !strings.Contains(msg, "01/01/2024") {
		t.Fatalf("unexpected series cancel message %q", msg)
	}
	if msg := CancellationMessage(a); !strings.HasPrefix(msg, "Olá, Gabriel!") {
		t.Fatalf("unexpected cancel message %q", msg)
	}
	msg := RescheduleMessage(a, civil.Date{Year: 2024, Month: time.January, Day: 11}, civil.MustClock("15:30"))
	if !strings.Contains(msg, "01/01/2024 às 10:00") || !strings.Contains(msg, "11/01/2024 às 15:30") {
		t.Fatalf("unexpected reschedule message %q", msg)
	}
}

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "tok")
	if err := s.Send(context.Background(), "(11) 98765-4321", "oi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["to"] != "5511987654321" || got["body"] != "oi" || auth != "Bearer tok" {
		t.Fatalf("unexpected request %v auth=%q", got, auth)
	}
	if !strings.HasPrefix(got["link"], "https://wa.me/5511987654321?text=") {
		t.Fatalf("unexpected link %q", got["link"])
	}
	if err := s.Send(context.Background(), "---", "oi"); err == nil {
		t.Fatalf("expected error for empty phone")
	}
}

func TestWebhookSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	if err := NewWebhookSender(srv.URL, "").Send(context.Background(), "11987654321", "oi"); err == nil {
		t.Fatalf("expected error")
	}
	if err := NewWebhookSender("", "").Send(context.Background(), "11987654321", "oi"); err == nil {
		t.Fatalf("expected error for missing url")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w, logger: discardLogger()}
	k.Emit(context.Background(), Event{Type: EventCancelled, Title: "Cancelado", EventIDs: []string{"e1"}})
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	var ev Event
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil || ev.Type != EventCancelled {
		t.Fatalf("unexpected payload %s (%v)", w.msgs[0].Value, err)
	}
	var sawType bool
	for _, h := range w.msgs[0].Headers {
		if h.Key == "event_type" && string(h.Value) == string(EventCancelled) {
			sawType = true
		}
	}
	if !sawType {
		t.Fatalf("missing event_type header")
	}

	// publish errors are swallowed
	w.err = errors.New("broker down")
	k.Emit(context.Background(), Event{Type: EventBooked})
}

type fakePush struct {
	sent []*messaging.Message
}

func (f *fakePush) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/p/messages/1", nil
}

func TestFCMNotifier(t *testing.T) {
	p := &fakePush{}
	n := &FCMNotifier{client: p, topic: "owner", logger: discardLogger()}
	n.Emit(context.Background(), Event{Type: EventRescheduled, Title: "Remarcado", Message: "m", EventIDs: []string{"a", "b"}})
	if len(p.sent) != 1 {
		t.Fatalf("expected one push")
	}
	m := p.sent[0]
	if m.Topic != "owner" || m.Data["event_ids"] != "a,b" || m.Notification.Title != "Remarcado" {
		t.Fatalf("unexpected push %+v", m)
	}
}

type recordingNotifier struct{ got []Event }

func (r *recordingNotifier) Emit(_ context.Context, ev Event) { r.got = append(r.got, ev) }

func TestMultiStampsTime(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Multi{a, nil, b}.Emit(context.Background(), Event{Type: EventBooked})
	if len(a.got) != 1 || len(b.got) != 1 || a.got[0].OccurredAt.IsZero() {
		t.Fatalf("unexpected fan-out %+v %+v", a.got, b.got)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(discardLogger(), nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Emit(context.Background(), Event{Type: EventBooked, Title: "Novo agendamento"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Title != "Novo agendamento" {
		t.Fatalf("unexpected frame %s (%v)", raw, err)
	}
}
