package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"unibot/internal/domain"
	"unibot/internal/session"
)

// exitPhrases end the session, case-insensitively.
var exitPhrases = map[string]struct{}{
	"tschüss":         {},
	"tschüß":          {},
	"auf wiedersehen": {},
	"q":               {},
}

const goodbye = "Auf Wiedersehen! :)"

// CLI implements domain.Channel as an interactive terminal session. Input
// stays responsive while answers are in flight: questions are published to
// the bus and answers are printed whenever they arrive, numbered so
// feedback commands can address them.
type CLI struct {
	bus           domain.MessageBus
	session       *session.Session
	logger        *slog.Logger
	in            io.Reader
	out           io.Writer
	indexedChunks int

	writeMu sync.Mutex

	mu      sync.Mutex
	answers map[int]domain.AnswerSnapshot
	nextN   int
	latestN int
}

type CLIConfig struct {
	Session *session.Session
	Logger  *slog.Logger
	// IndexedChunks is shown in the welcome notice.
	IndexedChunks int
	In            io.Reader
	Out           io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		session:       cfg.Session,
		logger:        cfg.Logger,
		in:            cfg.In,
		out:           cfg.Out,
		indexedChunks: cfg.IndexedChunks,
		answers:       make(map[int]domain.AnswerSnapshot),
		nextN:         1,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until an exit phrase, EOF or context cancellation.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(msg domain.OutboundMessage) {
		c.printAnswer(msg)
	})

	c.printWelcome()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.close()
				return <-scanErr
			}
			if done := c.handleLine(line); done {
				return nil
			}
		}
	}
}

// Stop is a no-op; the REPL ends when Start returns.
func (c *CLI) Stop() error { return nil }

// handleLine processes one input line. It returns true when the user asked
// to end the session.
func (c *CLI) handleLine(raw string) bool {
	line := strings.TrimSpace(raw)
	if line == "" {
		c.println("Please enter a query.")
		return false
	}

	if _, ok := exitPhrases[strings.ToLower(line)]; ok {
		c.println(goodbye)
		c.close()
		return true
	}

	if fields := strings.Fields(line); fields[0] == "/up" || fields[0] == "/down" {
		c.handleFeedback(fields)
		return false
	}

	c.println("You: " + line)
	c.bus.Publish(domain.InboundMessage{
		Channel:   "cli",
		ChatID:    "local",
		SenderID:  "user",
		Content:   line,
		Timestamp: time.Now(),
	})
	return false
}

// handleFeedback parses "/up [n]" and "/down [n] [reason...]". n defaults
// to the latest answered question; everything after n on a /down line is
// the free-text reason.
func (c *CLI) handleFeedback(fields []string) {
	thumbsUp := fields[0] == "/up"

	args := fields[1:]
	n := 0
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			n = parsed
			args = args[1:]
		}
	}
	reason := ""
	if !thumbsUp {
		reason = strings.Join(args, " ")
	}

	snap, ok := c.lookupAnswer(n)
	if !ok {
		c.println("No answer to rate.")
		return
	}
	if err := c.session.Record(snap, thumbsUp, reason); err != nil {
		c.logger.Warn("feedback rejected", "err", err)
		c.println("This answer has already been rated.")
		return
	}
	c.println("Feedback saved. Danke!")
}

// printAnswer delivers one outbound message. Plain messages (validation
// and error lines) print as-is; answers get a number, the Assistent prefix
// with latency, and the rating affordance.
func (c *CLI) printAnswer(msg domain.OutboundMessage) {
	if msg.Snapshot == nil {
		c.println(msg.Content)
		c.prompt()
		return
	}

	c.mu.Lock()
	n := c.nextN
	c.nextN++
	c.latestN = n
	c.answers[n] = *msg.Snapshot
	c.mu.Unlock()

	c.println(fmt.Sprintf("Assistent: %s (%.2f s)", msg.Content, msg.Snapshot.ElapsedSeconds()))
	c.println(fmt.Sprintf("[%d] 👍 /up %d   👎 /down %d [Grund]", n, n, n))
	c.prompt()
}

// lookupAnswer resolves an answer number; 0 means the latest.
func (c *CLI) lookupAnswer(n int) (domain.AnswerSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == 0 {
		n = c.latestN
	}
	snap, ok := c.answers[n]
	return snap, ok
}

func (c *CLI) printWelcome() {
	c.println("==============================================")
	c.println("  Uni-Assistent")
	c.println("==============================================")
	c.println("Ich beantworte Fragen zu Satzung, Ordnungen und")
	c.println("Moodle-Kursen der Hochschule.")
	c.println(fmt.Sprintf("Verbunden mit dem Index (%d Abschnitte).", c.indexedChunks))
	c.println(`Zum Beenden: "tschüss", "tschüß", "auf Wiedersehen" oder "q".`)
	c.prompt()
}

func (c *CLI) close() {
	if err := c.session.Close(); err != nil {
		c.logger.Warn("session close failed", "err", err)
	}
}

func (c *CLI) println(s string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *CLI) prompt() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	fmt.Fprint(c.out, "> ")
}
