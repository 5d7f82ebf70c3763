package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMessageNotFound is returned when a message is already gone.
var ErrMessageNotFound = errors.New("message not found")

// ThrottleError is returned when the chat service asks the caller to slow down.
type ThrottleError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled, retry after %s: %v", e.RetryAfter, e.Err)
}

func (e *ThrottleError) Unwrap() error {
	return e.Err
}

type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Client is the chat surface the desk needs. Text and captions are HTML.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error)
	SendAlbum(ctx context.Context, chatID int64, photos []string, caption string) ([]int, error)
	DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	FileURL(ctx context.Context, fileID string) (string, error)
	Updates(ctx context.Context) <-chan Update
}

// Update is either a message or a callback query.
type Update struct {
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID     int
	ChatID int64
	UserID int64
	Text   string
	// PhotoFileID is the largest size of an attached photo.
	PhotoFileID string
}

type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	UserID    int64
	Data      string
}
