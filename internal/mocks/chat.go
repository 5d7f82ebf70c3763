package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"horse.fit/newsdesk/internal/chat"
)

// ChatMessage is one live message held by the Chat fake.
type ChatMessage struct {
	ID       int
	ChatID   int64
	Text     string
	Photos   []string
	Keyboard chat.Keyboard
}

// Chat is an in-memory chat.Client. Album captions are stored on the first photo message.
type Chat struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]ChatMessage
	updates  chan chat.Update

	Deleted  []int
	Answers  []string
	Files    map[string]string
	Sends    int
	Attempts int

	// FailOnSend fails the n-th send attempt (1-based). Zero disables it.
	FailOnSend int
	// Throttles is the number of upcoming attempts answered with a ThrottleError.
	Throttles     int
	ThrottleDelay time.Duration
	DeleteErr     error
}

func NewChat() *Chat {
	return &Chat{
		messages: make(map[int]ChatMessage),
		updates:  make(chan chat.Update, 16),
		Files:    make(map[string]string),
	}
}

func (c *Chat) attempt() error {
	c.Attempts++
	if c.Throttles > 0 {
		c.Throttles--
		return &chat.ThrottleError{RetryAfter: c.ThrottleDelay, Err: errors.New("too many requests")}
	}
	if c.FailOnSend > 0 && c.Attempts == c.FailOnSend {
		return fmt.Errorf("send attempt %d failed", c.Attempts)
	}
	return nil
}

func (c *Chat) store(msg ChatMessage) int {
	c.nextID++
	msg.ID = c.nextID
	c.messages[msg.ID] = msg
	c.Sends++
	return msg.ID
}

func (c *Chat) SendText(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.attempt(); err != nil {
		return 0, err
	}
	return c.store(ChatMessage{ChatID: chatID, Text: text, Keyboard: keyboard}), nil
}

func (c *Chat) SendAlbum(ctx context.Context, chatID int64, photos []string, caption string) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.attempt(); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(photos))
	for i, photo := range photos {
		msg := ChatMessage{ChatID: chatID, Photos: []string{photo}}
		if i == 0 {
			msg.Text = caption
		}
		ids = append(ids, c.store(msg))
	}
	return ids, nil
}

func (c *Chat) DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	for _, id := range messageIDs {
		if _, ok := c.messages[id]; !ok {
			continue
		}
		delete(c.messages, id)
		c.Deleted = append(c.Deleted, id)
	}
	return nil
}

func (c *Chat) AnswerCallback(ctx context.Context, callbackID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Answers = append(c.Answers, text)
	return nil
}

func (c *Chat) FileURL(ctx context.Context, fileID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	link, ok := c.Files[fileID]
	if !ok {
		return "", fmt.Errorf("unknown file %q", fileID)
	}
	return link, nil
}

func (c *Chat) Updates(ctx context.Context) <-chan chat.Update {
	return c.updates
}

// Push queues an update for Updates consumers.
func (c *Chat) Push(update chat.Update) {
	c.updates <- update
}

// Live returns the messages still present in chatID, oldest first.
func (c *Chat) Live(chatID int64) []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ChatMessage, 0, len(c.messages))
	for _, msg := range c.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Message returns a live message by id.
func (c *Chat) Message(id int) (ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.messages[id]
	return msg, ok
}

// LastAnswer returns the most recent callback answer.
func (c *Chat) LastAnswer() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Answers) == 0 {
		return ""
	}
	return c.Answers[len(c.Answers)-1]
}
