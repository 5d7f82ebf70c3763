package publish

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/news"
)

type QueueStore interface {
	UnsuggestedCandidates(ctx context.Context, limit int) ([]news.ProcessedRecord, error)
	SaveSent(ctx context.Context, record news.SentRecord) error
	MarkSuggested(ctx context.Context, id news.ID) (bool, error)
}

// KeyboardFunc builds the reviewer controls for a queued post.
type KeyboardFunc func(id news.ID) chat.Keyboard

type Result struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Queue pushes unsuggested candidates into the moderation chat.
type Queue struct {
	store    QueueStore
	renderer *Renderer
	chatID   int64
	keyboard KeyboardFunc
	logger   zerolog.Logger
}

func NewQueue(store QueueStore, renderer *Renderer, chatID int64, keyboard KeyboardFunc, logger zerolog.Logger) *Queue {
	return &Queue{
		store:    store,
		renderer: renderer,
		chatID:   chatID,
		keyboard: keyboard,
		logger:   logger.With().Str("component", "queue").Logger(),
	}
}

// SendPending renders up to limit candidates, saves their message ids and marks
// them suggested. A persist failure deletes the messages sent for that post.
func (q *Queue) SendPending(ctx context.Context, limit int) (Result, error) {
	var result Result

	candidates, err := q.store.UnsuggestedCandidates(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("load unsuggested candidates: %w", err)
	}
	result.Pending = len(candidates)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := q.sendOne(ctx, candidate); err != nil {
			result.Failed++
			q.logger.Error().Err(err).Int64("id", int64(candidate.ID)).Msg("failed to queue candidate")
			continue
		}
		result.Sent++
	}
	return result, nil
}

func (q *Queue) sendOne(ctx context.Context, candidate news.ProcessedRecord) error {
	opts := Options{Meta: true}
	if q.keyboard != nil {
		opts.Keyboard = q.keyboard(candidate.ID)
	}

	rendered, err := q.renderer.RenderAndSend(ctx, q.chatID, candidate.Item, opts)
	if err != nil {
		return err
	}

	if err := q.store.SaveSent(ctx, rendered.Record(candidate.ID)); err != nil {
		q.renderer.discard(ctx, rendered)
		return fmt.Errorf("save sent record: %w", err)
	}
	marked, err := q.store.MarkSuggested(ctx, candidate.ID)
	if err != nil {
		q.renderer.discard(ctx, rendered)
		return fmt.Errorf("mark suggested: %w", err)
	}
	if !marked {
		q.logger.Warn().Int64("id", int64(candidate.ID)).Msg("candidate was already suggested")
	}
	return nil
}
