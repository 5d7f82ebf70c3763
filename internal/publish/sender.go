package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
)

// Sender serializes outgoing chat calls, keeping at least minDelay between them.
// A throttled call is retried once after the requested delay.
type Sender struct {
	client   chat.Client
	minDelay time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

type SenderOption func(*Sender)

// WithSleep replaces the wait used for pacing and throttle backoff.
func WithSleep(sleep func(context.Context, time.Duration) error) SenderOption {
	return func(s *Sender) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewSender(client chat.Client, minDelay time.Duration, logger zerolog.Logger, opts ...SenderOption) *Sender {
	s := &Sender{
		client:   client,
		minDelay: minDelay,
		sleep:    sleepContext,
		logger:   logger.With().Str("component", "sender").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the wrapped chat client for calls that are not paced.
func (s *Sender) Client() chat.Client {
	return s.client
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) (int, error) {
	var id int
	err := s.do(ctx, "send_text", func() error {
		var err error
		id, err = s.client.SendText(ctx, chatID, text, keyboard)
		return err
	})
	return id, err
}

func (s *Sender) SendAlbum(ctx context.Context, chatID int64, photos []string, caption string) ([]int, error) {
	var ids []int
	err := s.do(ctx, "send_album", func() error {
		var err error
		ids, err = s.client.SendAlbum(ctx, chatID, photos, caption)
		return err
	})
	return ids, err
}

// Delete removes messages; ids that no longer exist are ignored by the client.
func (s *Sender) Delete(ctx context.Context, chatID int64, messageIDs []int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return s.do(ctx, "delete", func() error {
		return s.client.DeleteMessages(ctx, chatID, messageIDs)
	})
}

func (s *Sender) do(ctx context.Context, op string, call func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minDelay > 0 && !s.last.IsZero() {
		if wait := s.minDelay - time.Since(s.last); wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	defer func() { s.last = time.Now() }()

	err := call()
	var throttle *chat.ThrottleError
	if !errors.As(err, &throttle) {
		return err
	}

	s.logger.Warn().
		Str("op", op).
		Dur("retry_after", throttle.RetryAfter).
		Msg("chat throttled, retrying once")
	if err := s.sleep(ctx, throttle.RetryAfter); err != nil {
		return err
	}
	return call()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
