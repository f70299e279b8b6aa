package channel

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"unibot/internal/bus"
	"unibot/internal/domain"
	"unibot/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cliFixture struct {
	cli  *CLI
	sess *session.Session
	bus  *bus.InMemoryBus
	out  *bytes.Buffer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	sess, err := session.New(session.Config{FeedbackDir: t.TempDir(), Logger: testLogger()})
	if err != nil {
		t.Fatal(err)
	}
	b := bus.New(4, testLogger())
	out := &bytes.Buffer{}
	cli := NewCLI(CLIConfig{Session: sess, Logger: testLogger(), IndexedChunks: 42, Out: out})
	cli.bus = b

	t.Cleanup(func() {
		sess.Close()
		b.Close()
	})
	return &cliFixture{cli: cli, sess: sess, bus: b, out: out}
}

// answered drives a question through the session and hands the CLI the
// outbound answer, the way the engine would.
func (f *cliFixture) answered(t *testing.T, question, answer string) domain.AnswerSnapshot {
	t.Helper()
	id, _, err := f.sess.Submit(context.Background(), question)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.sess.MarkAnswering(id); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.MarkAnswered(id, answer, 1500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	snap := domain.AnswerSnapshot{RequestID: id, Question: question, Answer: answer, Elapsed: 1500 * time.Millisecond}
	f.cli.printAnswer(domain.OutboundMessage{Channel: "cli", Content: answer, Snapshot: &snap})
	return snap
}

func (f *cliFixture) feedbackRows(t *testing.T) [][]string {
	t.Helper()
	file, err := os.Open(f.sess.LogPath())
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows[1:] // skip header
}

func TestCLI_EmptyInputReprompts(t *testing.T) {
	f := newCLIFixture(t)
	f.cli.handleLine("   ")
	if !strings.Contains(f.out.String(), "Please enter a query.") {
		t.Fatalf("output = %q", f.out.String())
	}
	select {
	case msg := <-f.bus.Subscribe():
		t.Fatalf("empty input must not be published, got %+v", msg)
	default:
	}
}

func TestCLI_QuestionEchoedAndPublished(t *testing.T) {
	f := newCLIFixture(t)
	if done := f.cli.handleLine("Wann ist die Frist?"); done {
		t.Fatal("question must not end the session")
	}
	if !strings.Contains(f.out.String(), "You: Wann ist die Frist?") {
		t.Fatalf("question not echoed: %q", f.out.String())
	}
	select {
	case msg := <-f.bus.Subscribe():
		if msg.Content != "Wann ist die Frist?" || msg.Channel != "cli" {
			t.Fatalf("published %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("question never published")
	}
}

func TestCLI_ExitPhrases(t *testing.T) {
	for _, phrase := range []string{"tschüss", "Tschüß", "AUF WIEDERSEHEN", "q"} {
		t.Run(phrase, func(t *testing.T) {
			f := newCLIFixture(t)
			if done := f.cli.handleLine(phrase); !done {
				t.Fatalf("%q must end the session", phrase)
			}
			if !strings.Contains(f.out.String(), "Auf Wiedersehen! :)") {
				t.Fatalf("missing goodbye: %q", f.out.String())
			}
			if !f.sess.Closed() {
				t.Fatal("session must be closed")
			}
		})
	}
}

func TestCLI_AnswerFormat(t *testing.T) {
	f := newCLIFixture(t)
	f.answered(t, "Frage?", "Die Frist ist am 20 Jän.")
	out := f.out.String()
	if !strings.Contains(out, "Assistent: Die Frist ist am 20 Jän. (1.50 s)") {
		t.Fatalf("answer line wrong: %q", out)
	}
	if !strings.Contains(out, "👍 /up 1") || !strings.Contains(out, "👎 /down 1") {
		t.Fatalf("rating affordance missing: %q", out)
	}
}

func TestCLI_PlainMessagePrintedAsIs(t *testing.T) {
	f := newCLIFixture(t)
	f.cli.printAnswer(domain.OutboundMessage{Channel: "cli", Content: "Query error: boom (0.42 s)"})
	if !strings.Contains(f.out.String(), "Query error: boom (0.42 s)") {
		t.Fatalf("output = %q", f.out.String())
	}
}

func TestCLI_UpDefaultsToLatest(t *testing.T) {
	f := newCLIFixture(t)
	f.answered(t, "Erste?", "A1")
	f.answered(t, "Zweite?", "A2")

	f.cli.handleLine("/up")

	rows := f.feedbackRows(t)
	if len(rows) != 1 {
		t.Fatalf("got %d feedback rows", len(rows))
	}
	if rows[0][1] != "Zweite?" || rows[0][3] != "1" {
		t.Fatalf("wrong question rated: %v", rows[0])
	}
}

func TestCLI_DownWithNumberAndReason(t *testing.T) {
	f := newCLIFixture(t)
	f.answered(t, "Erste?", "A1")
	f.answered(t, "Zweite?", "A2")

	f.cli.handleLine("/down 1 zu allgemein gehalten")

	rows := f.feedbackRows(t)
	if len(rows) != 1 {
		t.Fatalf("got %d feedback rows", len(rows))
	}
	if rows[0][1] != "Erste?" || rows[0][4] != "1" || rows[0][5] != "zu allgemein gehalten" {
		t.Fatalf("row = %v", rows[0])
	}
}

func TestCLI_BareDownRecordsIrrelevant(t *testing.T) {
	f := newCLIFixture(t)
	f.answered(t, "Frage?", "Antwort")

	f.cli.handleLine("/down")

	rows := f.feedbackRows(t)
	if len(rows) != 1 || rows[0][5] != domain.FeedbackReasonIrrelevant {
		t.Fatalf("rows = %v", rows)
	}
}

func TestCLI_DoubleRatingRejected(t *testing.T) {
	f := newCLIFixture(t)
	f.answered(t, "Frage?", "Antwort")

	f.cli.handleLine("/up")
	f.cli.handleLine("/down")

	if len(f.feedbackRows(t)) != 1 {
		t.Fatal("second rating must not add a row")
	}
	if !strings.Contains(f.out.String(), "already been rated") {
		t.Fatalf("missing rejection notice: %q", f.out.String())
	}
}

func TestCLI_FeedbackWithoutAnswer(t *testing.T) {
	f := newCLIFixture(t)
	f.cli.handleLine("/up")
	if !strings.Contains(f.out.String(), "No answer to rate.") {
		t.Fatalf("output = %q", f.out.String())
	}
}
