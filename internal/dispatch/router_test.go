package dispatch_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/artyone/relaybot/internal/dispatch"
	"github.com/artyone/relaybot/internal/llm"
	"github.com/artyone/relaybot/internal/mocks"
	"github.com/artyone/relaybot/internal/pipeline"
	"github.com/artyone/relaybot/internal/session"
	"github.com/artyone/relaybot/internal/telegram"
)

const (
	testContext = "Always answer in Russian. Постоянно отвечай на русском."
	adminID     = int64(1)
	userID      = int64(42)
)

type fixture struct {
	registry  *session.Registry
	completer *mocks.Completer
	messenger *mocks.Messenger
	recorder  *mocks.Recorder
	router    *dispatch.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := session.NewRegistry(testContext)
	registry.Register(session.Identity(adminID))

	completer := &mocks.Completer{Reply: "Привет"}
	recorder := &mocks.Recorder{}
	messenger := &mocks.Messenger{}

	pipe, err := pipeline.New(completer, recorder)
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}

	router, err := dispatch.NewRouter(registry, pipe, messenger, session.Identity(adminID))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	return &fixture{
		registry:  registry,
		completer: completer,
		messenger: messenger,
		recorder:  recorder,
		router:    router,
	}
}

func (f *fixture) handle(t *testing.T, identity int64, text string) {
	t.Helper()

	err := f.router.Handle(context.Background(), telegram.IncomingMessage{
		Identity:  identity,
		Username:  "tester",
		Text:      text,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Handle(%q) failed: %v", text, err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		want    dispatch.Command
		matched bool
	}{
		{"/start", dispatch.CommandStart, true},
		{"/reset", dispatch.CommandReset, true},
		{"/new", dispatch.CommandNew, true},
		{"/current", dispatch.CommandCurrent, true},
		{"/set", dispatch.CommandSet, true},
		{"/start@relay_bot", dispatch.CommandStart, true},
		{"  /start  ", dispatch.CommandStart, true},
		{"/start now", dispatch.CommandStart, true},
		{"/unknown", "", false},
		{"start", "", false},
		{"hello /start", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, matched := dispatch.ParseCommand(tt.text)
			if matched != tt.matched || got != tt.want {
				t.Errorf("ParseCommand(%q) = (%q, %v), want (%q, %v)",
					tt.text, got, matched, tt.want, tt.matched)
			}
		})
	}
}

func TestRouter_UnregisteredRejection(t *testing.T) {
	f := newFixture(t)

	f.handle(t, userID, "hello")

	if _, err := f.registry.Get(session.Identity(userID)); err == nil {
		t.Error("rejected event must not create a session")
	}

	sent := f.messenger.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Text, "/start") {
		t.Errorf("expected registration prompt, got %q", sent[0].Text)
	}
	if len(f.completer.Requests()) != 0 {
		t.Error("backend must not be called for unregistered identities")
	}
}

func TestRouter_StartRegistersAndNotifiesAdmin(t *testing.T) {
	f := newFixture(t)

	f.handle(t, userID, "/start")

	sess, err := f.registry.Get(session.Identity(userID))
	if err != nil {
		t.Fatalf("expected session after /start: %v", err)
	}
	if sess.State() != session.StateIdle {
		t.Errorf("expected idle state, got %s", sess.State())
	}

	sent := f.messenger.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected admin notice and welcome, got %d messages", len(sent))
	}
	if sent[0].Recipient != adminID || !strings.Contains(sent[0].Text, "42") {
		t.Errorf("expected admin notice first, got %+v", sent[0])
	}
	if sent[1].Recipient != userID || !strings.Contains(sent[1].Text, "Привет") {
		t.Errorf("expected welcome reply, got %+v", sent[1])
	}
}

func TestRouter_StartIdempotent(t *testing.T) {
	f := newFixture(t)

	f.handle(t, userID, "/start")
	f.handle(t, userID, "/start")

	var adminNotices int
	for _, msg := range f.messenger.Sent() {
		if msg.Recipient == adminID {
			adminNotices++
		}
	}
	if adminNotices != 1 {
		t.Errorf("admin must be notified exactly once, got %d notices", adminNotices)
	}
}

func TestRouter_StartForcesIdle(t *testing.T) {
	f := newFixture(t)

	f.handle(t, userID, "/start")
	f.handle(t, userID, "/set")
	f.handle(t, userID, "/start")

	sess, _ := f.registry.Get(session.Identity(userID))
	if sess.State() != session.StateIdle {
		t.Errorf("expected /start to force idle, got %s", sess.State())
	}
}

func TestRouter_ResetRestoresDefaultContext(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")
	f.handle(t, userID, "/set")
	f.handle(t, userID, "custom context")

	f.handle(t, userID, "/reset")

	sess, _ := f.registry.Get(session.Identity(userID))
	if got := sess.Context().Content; got != testContext {
		t.Errorf("expected default context restored, got %q", got)
	}
	if sess.HistoryLen() != 0 {
		t.Error("expected history cleared by /reset")
	}
}

func TestRouter_NewClearsHistoryOnly(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")
	f.handle(t, userID, "/set")
	f.handle(t, userID, "custom context")
	f.handle(t, userID, "hello")

	sess, _ := f.registry.Get(session.Identity(userID))
	if sess.HistoryLen() == 0 {
		t.Fatal("expected history before /new")
	}

	f.handle(t, userID, "/new")

	if sess.HistoryLen() != 0 {
		t.Error("expected history cleared by /new")
	}
	if got := sess.Context().Content; got != "custom context" {
		t.Errorf("/new must keep the context, got %q", got)
	}
}

func TestRouter_CurrentReportsContext(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.handle(t, userID, "/current")

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if !strings.Contains(last.Text, testContext) {
		t.Errorf("expected current context in reply, got %q", last.Text)
	}
	if !strings.Contains(last.Text, "<code>") {
		t.Errorf("expected context wrapped in code markup, got %q", last.Text)
	}
}

func TestRouter_CurrentEscapesMarkup(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")
	f.handle(t, userID, "/set")
	f.handle(t, userID, "use <b> tags & stuff")

	f.handle(t, userID, "/current")

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if strings.Contains(last.Text, "<b>") {
		t.Errorf("context must be HTML-escaped, got %q", last.Text)
	}
	if !strings.Contains(last.Text, "&lt;b&gt;") {
		t.Errorf("expected escaped markup, got %q", last.Text)
	}
}

func TestRouter_SettingsRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.handle(t, userID, "/set")

	sess, _ := f.registry.Get(session.Identity(userID))
	if sess.State() != session.StateAwaitingSettings {
		t.Fatalf("expected awaiting-settings after /set, got %s", sess.State())
	}

	f.handle(t, userID, "X")

	if got := sess.Context().Content; got != "X" {
		t.Errorf("expected context %q, got %q", "X", got)
	}
	if sess.State() != session.StateIdle {
		t.Errorf("expected idle after settings capture, got %s", sess.State())
	}

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if !strings.Contains(last.Text, "приняты") {
		t.Errorf("expected settings-accepted reply, got %q", last.Text)
	}
	if len(f.completer.Requests()) != 0 {
		t.Error("settings capture must not call the backend")
	}
}

func TestRouter_CommandWinsOverSettingsCapture(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")
	f.handle(t, userID, "/set")

	// A recognized command sent while awaiting settings is interpreted as a
	// command, not as the settings payload.
	f.handle(t, userID, "/current")

	sess, _ := f.registry.Get(session.Identity(userID))
	if got := sess.Context().Content; got != testContext {
		t.Errorf("command token must not become the context, got %q", got)
	}
	if sess.State() != session.StateIdle {
		t.Errorf("expected idle after intercepted command, got %s", sess.State())
	}
}

func TestRouter_IdleTextGoesToPipeline(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.handle(t, userID, "hello")

	requests := f.completer.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(requests))
	}
	payload := requests[0]
	if len(payload) != 2 {
		t.Fatalf("expected [context, user] payload, got %d entries", len(payload))
	}
	if payload[0].Content != testContext || payload[1].Content != "hello" {
		t.Errorf("unexpected payload: %+v", payload)
	}

	sess, _ := f.registry.Get(session.Identity(userID))
	window := sess.Window()
	if len(window) != 2 || window[0].Content != "hello" || window[1].Content != "Привет" {
		t.Errorf("unexpected history after completion: %+v", window)
	}

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if !last.Markdown {
		t.Error("assistant reply must be sent as Markdown")
	}
	if last.Text != "Привет" {
		t.Errorf("reply = %q, want %q", last.Text, "Привет")
	}
}

func TestRouter_BackendFailureNotice(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.completer.CompleteFunc = func(context.Context, []session.Turn) (string, error) {
		return "", fmt.Errorf("%w: timeout", llm.ErrBackendUnavailable)
	}

	f.handle(t, userID, "hi")

	sess, _ := f.registry.Get(session.Identity(userID))
	if sess.HistoryLen() != 0 {
		t.Error("failed completion must not commit history")
	}

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if last.Markdown {
		t.Error("failure notice must not be a Markdown assistant reply")
	}
	if !strings.Contains(last.Text, "Попробуйте") {
		t.Errorf("expected failure notice, got %q", last.Text)
	}
}

func TestRouter_UnknownSlashTokenIsPlainText(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.handle(t, userID, "/weather tomorrow")

	if len(f.completer.Requests()) != 1 {
		t.Error("unknown slash tokens must flow to the pipeline as text")
	}
}

func TestRouter_EmptyTextFallback(t *testing.T) {
	f := newFixture(t)
	f.handle(t, userID, "/start")

	f.handle(t, userID, "   ")

	sent := f.messenger.Sent()
	last := sent[len(sent)-1]
	if !strings.Contains(last.Text, "доступ") {
		t.Errorf("expected fallback reply, got %q", last.Text)
	}
	if len(f.completer.Requests()) != 0 {
		t.Error("fallback events must not reach the backend")
	}
}
