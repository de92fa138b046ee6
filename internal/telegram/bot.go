package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"keto-planner/internal/app"
	"keto-planner/internal/config"
	"keto-planner/internal/logger"
	"keto-planner/internal/nutrition"
	"keto-planner/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const planTimeout = 3 * time.Minute

// Service is what the bot needs from the application.
type Service interface {
	Calculate(input nutrition.UserInput) (*nutrition.CalcOutput, error)
	GenerateMealPlan(ctx context.Context, input nutrition.UserInput) (*planner.MealPlan, error)
	Usage(days int) (*app.UsageReport, error)
}

// Sender is the part of the Telegram API the bot uses to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers /calc, /plan and /metrics for allow-listed users.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	svc    Service
	cfg    *config.Config
	log    *logger.Logger

	// baseCtx parents every in-flight update; cancel aborts them at shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("telegram bot authorized", "account", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info("webhook set", "description", resp.Description)
	}

	b := newBot(api, cfg, svc, log)
	b.api = api
	return b, nil
}

func newBot(sender Sender, cfg *config.Config, svc Service, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{sender: sender, svc: svc, cfg: cfg, log: log, baseCtx: ctx, cancel: cancel}
}

// Handler serves the webhook and a health probe.
func (b *Bot) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn("error parsing update", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	// Telegram redelivers updates that are not acknowledged quickly.
	b.dispatch(*update)
}

// dispatch handles update in the background and tracks it for Shutdown.
func (b *Bot) dispatch(update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(update)
	}()
}

// Shutdown waits for in-flight updates. When ctx expires first, pending plan
// generations are cancelled and Shutdown still waits for them to return, so no
// update touches the service after it returns. Stop the HTTP server before calling it.
func (b *Bot) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.log.Warn("cancelling in-flight updates")
		b.cancel()
		<-done
		return ctx.Err()
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		b.log.Warn("unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	switch msg.Command() {
	case "calc":
		b.handleCalc(msg)
	case "plan":
		b.handlePlan(msg)
	case "metrics":
		b.handleMetrics(msg)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	if userID == b.cfg.AdminTelegramID && userID != 0 {
		return true
	}
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

func (b *Bot) handleCalc(msg *tgbotapi.Message) {
	input, err := ParseUserInput(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, formatError(err))
		return
	}
	out, err := b.svc.Calculate(input)
	if err != nil {
		b.reply(msg.Chat.ID, formatError(err))
		return
	}
	b.reply(msg.Chat.ID, formatCalc(out))
}

func (b *Bot) handlePlan(msg *tgbotapi.Message) {
	input, err := ParseUserInput(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, formatError(err))
		return
	}

	status := tgbotapi.NewMessage(msg.Chat.ID, "🧑‍🍳 *Thinking...* \n(Generating your keto plan)")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.sender.Send(status)
	if err != nil {
		b.log.Warn("failed to send initial reply", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.baseCtx, planTimeout)
	defer cancel()

	plan, err := b.svc.GenerateMealPlan(ctx, input)
	if err != nil {
		b.log.Warn("error generating plan", "user_id", msg.From.ID, "kind", planner.KindOf(err), "error", err)
		b.edit(msg.Chat.ID, sent.MessageID, formatError(err))
		return
	}

	planParts, shoppingParts := formatPlanMarkdownParts(plan)
	b.edit(msg.Chat.ID, sent.MessageID, planParts[0])
	for _, part := range planParts[1:] {
		b.reply(msg.Chat.ID, part)
	}
	for _, part := range shoppingParts {
		b.reply(msg.Chat.ID, part)
	}
}

func (b *Bot) handleMetrics(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	days := 7
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			days = n
		}
	}
	report, err := b.svc.Usage(days)
	if err != nil {
		b.log.Warn("error fetching metrics", "error", err)
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatUsage(report))
}

func (b *Bot) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(m); err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(e); err != nil {
		b.log.Warn("failed to edit message", "chat_id", chatID, "error", err)
	}
}
