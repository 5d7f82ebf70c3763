package moderation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/news"
)

const (
	replyNotAllowed = "You are not allowed to moderate posts."
	replyFailed     = "Something went wrong, please try again."
)

const helpText = `Moderation bot.

Queue posts carry Edit, Delete and Confirm buttons.
/edit &lt;id&gt; opens the edit menu for a post.
/status shows queue counters.
/help shows this message.`

type StatsSource interface {
	Stats(ctx context.Context) (news.QueueStats, error)
}

// Bot turns chat updates into machine actions for authorized reviewers.
type Bot struct {
	machine   *Machine
	client    chat.Client
	stats     StatsSource
	reviewers map[int64]struct{}
	logger    zerolog.Logger
}

func NewBot(machine *Machine, client chat.Client, stats StatsSource, reviewers []int64, logger zerolog.Logger) *Bot {
	allowed := make(map[int64]struct{}, len(reviewers))
	for _, id := range reviewers {
		allowed[id] = struct{}{}
	}
	return &Bot{
		machine:   machine,
		client:    client,
		stats:     stats,
		reviewers: allowed,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Run handles updates until ctx is cancelled or the update stream closes.
func (b *Bot) Run(ctx context.Context) error {
	updates := b.client.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			b.Handle(ctx, update)
		}
	}
}

func (b *Bot) Handle(ctx context.Context, update chat.Update) {
	switch {
	case update.Callback != nil:
		b.handleCallback(ctx, update.Callback)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) allowed(userID int64) bool {
	_, ok := b.reviewers[userID]
	return ok
}

func (b *Bot) handleCallback(ctx context.Context, cb *chat.Callback) {
	if !b.allowed(cb.UserID) {
		b.answer(ctx, cb.ID, replyNotAllowed)
		return
	}
	action, id, err := ParseCallback(cb.Data)
	if err != nil {
		b.logger.Warn().Err(err).Str("data", cb.Data).Msg("ignoring callback")
		b.answer(ctx, cb.ID, ErrIllegalTransition.Error())
		return
	}

	reply, err := b.machine.Dispatch(ctx, Input{
		PostID:   id,
		Reviewer: cb.UserID,
		ChatID:   cb.ChatID,
		Action:   action,
	})
	if err != nil {
		reply = b.describe(err, id)
	}
	b.answer(ctx, cb.ID, reply)
}

func (b *Bot) handleMessage(ctx context.Context, msg *chat.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}
	if !b.allowed(msg.UserID) {
		return
	}

	reply, handled, err := b.machine.Submit(ctx, msg.UserID, msg.ChatID, text, msg.PhotoFileID)
	if !handled {
		return
	}
	if err != nil {
		reply = b.describe(err, 0)
	}
	if reply != "" {
		b.send(ctx, msg.ChatID, html.EscapeString(reply))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *chat.Message, text string) {
	command, args, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")

	if !b.allowed(msg.UserID) {
		b.send(ctx, msg.ChatID, replyNotAllowed)
		return
	}

	switch strings.ToLower(command) {
	case "/start", "/help":
		b.send(ctx, msg.ChatID, helpText)
	case "/status":
		b.send(ctx, msg.ChatID, b.statusText(ctx))
	case "/edit":
		id, err := news.ParseID(args)
		if err != nil {
			b.send(ctx, msg.ChatID, "Usage: /edit &lt;id&gt;")
			return
		}
		reply, err := b.machine.Dispatch(ctx, Input{PostID: id, Reviewer: msg.UserID, ChatID: msg.ChatID, Action: ActionOpen})
		if err != nil {
			reply = b.describe(err, id)
		}
		b.send(ctx, msg.ChatID, html.EscapeString(reply))
	default:
		b.send(ctx, msg.ChatID, "Unknown command. "+helpText)
	}
}

func (b *Bot) statusText(ctx context.Context) string {
	if b.stats == nil {
		return "Status is unavailable."
	}
	stats, err := b.stats.Stats(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to load queue stats")
		return replyFailed
	}
	return fmt.Sprintf(
		"Raw: %d (pending %d)\nProcessed: %d\nCandidates: %d, duplicates: %d, bootstrapped: %d\nAwaiting queue: %d\nIn queue: %d\nConfirmed: %d, rejected: %d\nEdit locks: %d",
		stats.Raw, stats.PendingRaw, stats.Processed,
		stats.Candidates, stats.Duplicates, stats.Bootstrapped,
		stats.AwaitingQueue, stats.InQueue,
		stats.Confirmed, stats.Rejected,
		len(b.machine.Locks().Snapshot()),
	)
}

// describe maps machine errors to reviewer-facing text.
func (b *Bot) describe(err error, id news.ID) string {
	for _, rejected := range []error{
		ErrLocked,
		ErrNotFound,
		ErrFinalized,
		ErrIllegalTransition,
		ErrMediaCap,
		ErrInvalidPositions,
		ErrEmptyValue,
	} {
		if errors.Is(err, rejected) {
			message := err.Error()
			return strings.ToUpper(message[:1]) + message[1:] + "."
		}
	}
	b.logger.Error().Err(err).Int64("id", int64(id)).Msg("moderation action failed")
	return replyFailed
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.client.AnswerCallback(ctx, callbackID, text); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback")
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendText(ctx, chatID, text, nil); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}
