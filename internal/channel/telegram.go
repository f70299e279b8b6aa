package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"unibot/internal/domain"
	"unibot/internal/session"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Callback data prefixes for the feedback keyboards.
const (
	cbThumbsUp   = "fb:up:"
	cbThumbsDown = "fb:down:"
	cbIrrelevant = "fbr:irr:"
	cbOther      = "fbr:other:"
)

// Telegram implements domain.Channel over the Bot API. Every answer
// carries a 👍/👎 inline keyboard; 👎 opens a second keyboard with the
// irrelevant category and a free-text option answered via /reason.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs (empty = allow all)

	bot     *tgbotapi.BotAPI
	bus     domain.MessageBus
	session *session.Session
	logger  *slog.Logger

	// pendingReason maps chat → request id waiting for a /reason message.
	pendingReason   map[int64]string
	pendingReasonMu sync.Mutex
}

type TelegramChannelConfig struct {
	Token     string
	AllowFrom []string // user IDs as strings
	Session   *session.Session
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramChannelConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	return &Telegram{
		token:         cfg.Token,
		allowFrom:     allowed,
		session:       cfg.Session,
		logger:        cfg.Logger,
		pendingReason: make(map[int64]string),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid telegram chat id", "chat_id", msg.ChatID, "err", err)
			return
		}
		t.deliver(chatID, msg)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op; polling stops when Start's context is cancelled.
func (t *Telegram) Stop() error { return nil }

// deliver sends one outbound message. Answers get the latency suffix and
// the rating keyboard; plain messages go out as-is.
func (t *Telegram) deliver(chatID int64, out domain.OutboundMessage) {
	if out.Snapshot == nil {
		t.sendText(chatID, out.Content)
		return
	}

	text := fmt.Sprintf("Assistent: %s (%.2f s)", out.Content, out.Snapshot.ElapsedSeconds())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", cbThumbsUp+out.Snapshot.RequestID),
			tgbotapi.NewInlineKeyboardButtonData("👎", cbThumbsDown+out.Snapshot.RequestID),
		),
	)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("telegram answer send failed", "err", err)
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user", "user_id", userID, "username", update.Message.From.UserName)
		t.sendText(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}
	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	t.bus.Publish(domain.InboundMessage{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		SenderID:  strconv.FormatInt(userID, 10),
		Content:   text,
		Timestamp: time.Unix(int64(update.Message.Date), 0),
	})
}

// handleCallback runs the feedback keyboard flow.
func (t *Telegram) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	data := cq.Data

	_, _ = t.bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	clearKeyboard := func() {
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		_, _ = t.bot.Send(edit)
	}

	switch {
	case strings.HasPrefix(data, cbThumbsUp):
		t.recordFeedback(chatID, strings.TrimPrefix(data, cbThumbsUp), true, "")
		clearKeyboard()

	case strings.HasPrefix(data, cbThumbsDown):
		reqID := strings.TrimPrefix(data, cbThumbsDown)
		msg := tgbotapi.NewMessage(chatID, "Was war das Problem?")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Irrelevante Information", cbIrrelevant+reqID),
				tgbotapi.NewInlineKeyboardButtonData("Andere", cbOther+reqID),
			),
		)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error("telegram reason keyboard failed", "err", err)
		}
		clearKeyboard()

	case strings.HasPrefix(data, cbIrrelevant):
		t.recordFeedback(chatID, strings.TrimPrefix(data, cbIrrelevant), false, "")
		clearKeyboard()

	case strings.HasPrefix(data, cbOther):
		reqID := strings.TrimPrefix(data, cbOther)
		if err := t.session.AwaitFeedback(reqID); err != nil {
			t.logger.Warn("feedback no longer possible", "request", reqID, "err", err)
			t.sendText(chatID, "Diese Antwort kann nicht mehr bewertet werden.")
			clearKeyboard()
			return
		}
		t.pendingReasonMu.Lock()
		t.pendingReason[chatID] = reqID
		t.pendingReasonMu.Unlock()
		t.sendText(chatID, "Bitte sende /reason <Begründung>.")
		clearKeyboard()
	}
}

func (t *Telegram) recordFeedback(chatID int64, reqID string, thumbsUp bool, reason string) {
	snap, ok := t.session.Snapshot(reqID)
	if !ok {
		t.sendText(chatID, "Diese Antwort kann nicht mehr bewertet werden.")
		return
	}
	if err := t.session.Record(snap, thumbsUp, reason); err != nil {
		t.logger.Warn("feedback rejected", "request", reqID, "err", err)
		t.sendText(chatID, "Diese Antwort wurde bereits bewertet.")
		return
	}
	t.sendText(chatID, "Danke für dein Feedback!")
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendText(chatID, "Hallo! Ich beantworte Fragen zu Satzung, Ordnungen und Moodle-Kursen der Hochschule. Stell einfach eine Frage.")
	case "reason":
		t.pendingReasonMu.Lock()
		reqID, ok := t.pendingReason[chatID]
		if ok {
			delete(t.pendingReason, chatID)
		}
		t.pendingReasonMu.Unlock()
		if !ok {
			t.sendText(chatID, "Keine offene Bewertung.")
			return
		}
		reason := strings.TrimSpace(msg.CommandArguments())
		t.recordFeedback(chatID, reqID, false, reason)
	default:
		t.sendText(chatID, "Unbekannter Befehl.")
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// sendText splits long messages at the Telegram length limit, preferring a
// newline boundary, and retries transient send errors with backoff.
func (t *Telegram) sendText(chatID int64, text string) {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}
		t.sendChunk(chatID, chunk)
	}
}

func (t *Telegram) sendChunk(chatID int64, text string) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		if strings.Contains(err.Error(), "Too Many Requests") || strings.Contains(err.Error(), "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off", "retry_after", retryAfter)
			time.Sleep(retryAfter)
			continue
		}
		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
		t.logger.Error("telegram send failed after retries", "err", err)
	}
}
