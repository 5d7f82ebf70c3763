package moderation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/publish"
	"horse.fit/newsdesk/internal/reader"
)

var (
	ErrLocked            = errors.New("this post is being edited by someone else")
	ErrNotFound          = errors.New("post not found")
	ErrFinalized         = errors.New("post was already moderated")
	ErrIllegalTransition = errors.New("action not available")
	ErrMediaCap          = errors.New("media limit exceeded")
	ErrInvalidPositions  = errors.New("invalid media positions")
	ErrEmptyValue        = errors.New("value is empty")
)

const menuPreviewChars = 600

type Store interface {
	GetProcessed(ctx context.Context, id news.ID) (news.ProcessedRecord, error)
	UpdateTitle(ctx context.Context, id news.ID, title string) error
	UpdateText(ctx context.Context, id news.ID, text string) error
	UpdateMedia(ctx context.Context, id news.ID, media []string) error
	RestoreContent(ctx context.Context, id news.ID, item news.Item) error
	GetSent(ctx context.Context, id news.ID) (news.SentRecord, error)
	SaveSent(ctx context.Context, record news.SentRecord) error
	FinalizeSent(ctx context.Context, id news.ID, confirmed bool) (bool, error)
	ReopenSent(ctx context.Context, id news.ID) error
}

// MediaFetcher stores a remote file and returns its media name.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Deps struct {
	Locks    *LockManager
	Store    Store
	Renderer *publish.Renderer
	Media    MediaFetcher
}

type Config struct {
	// Transitions defaults to DefaultTransitions.
	Transitions []Transition
	QueueChatID int64
	ChannelFor  func(topic string) int64
	MediaCap    int
}

type mediaMode int

const (
	mediaModeNone mediaMode = iota
	mediaModeAdd
	mediaModeRemove
)

type session struct {
	postID   news.ID
	reviewer int64
	chatID   int64
	state    State
	mode     mediaMode
	snapshot news.Item
	prompts  []int
}

// Input is one reviewer action on a post.
type Input struct {
	PostID   news.ID
	Reviewer int64
	ChatID   int64
	Action   Action
	Text     string
	FileIDs  []string
}

// Machine runs reviewer sessions. Actions on one post are serialized; posts
// are independent of each other.
type Machine struct {
	table    *Table
	locks    *LockManager
	store    Store
	renderer *publish.Renderer
	sender   *publish.Sender
	client   chat.Client
	media    MediaFetcher
	cfg      Config
	logger   zerolog.Logger

	mu       sync.Mutex
	posts    map[news.ID]*postGate
	sessions map[news.ID]*session
	active   map[int64]news.ID
}

func NewMachine(deps Deps, cfg Config, logger zerolog.Logger) (*Machine, error) {
	transitions := cfg.Transitions
	if transitions == nil {
		transitions = DefaultTransitions
	}
	table, err := NewTable(transitions)
	if err != nil {
		return nil, fmt.Errorf("invalid transition table: %w", err)
	}
	if deps.Locks == nil || deps.Store == nil || deps.Renderer == nil || deps.Media == nil {
		return nil, fmt.Errorf("moderation machine dependencies are incomplete")
	}
	if cfg.QueueChatID == 0 {
		return nil, fmt.Errorf("queue chat id is required")
	}
	if cfg.ChannelFor == nil {
		return nil, fmt.Errorf("publish channel resolver is required")
	}
	if cfg.MediaCap <= 0 || cfg.MediaCap > publish.AlbumLimit {
		cfg.MediaCap = publish.AlbumLimit
	}

	sender := deps.Renderer.Sender()
	return &Machine{
		table:    table,
		locks:    deps.Locks,
		store:    deps.Store,
		renderer: deps.Renderer,
		sender:   sender,
		client:   sender.Client(),
		media:    deps.Media,
		cfg:      cfg,
		logger:   logger.With().Str("component", "moderation").Logger(),
		posts:    make(map[news.ID]*postGate),
		sessions: make(map[news.ID]*session),
		active:   make(map[int64]news.ID),
	}, nil
}

// Locks exposes the lock manager for status reporting.
func (m *Machine) Locks() *LockManager {
	return m.locks
}

// State returns the session state of a post.
func (m *Machine) State(id news.ID) State {
	defer m.lockPost(id)()

	if sess := m.session(id); sess != nil {
		return sess.state
	}
	return StateIdle
}

// Dispatch applies one action and returns the text to show the reviewer.
func (m *Machine) Dispatch(ctx context.Context, in Input) (string, error) {
	defer m.lockPost(in.PostID)()

	return m.dispatchLocked(ctx, in)
}

// Submit routes free input to the post the reviewer is editing. handled is
// false when no session is waiting for this kind of input.
func (m *Machine) Submit(ctx context.Context, reviewer, chatID int64, text, photoFileID string) (string, bool, error) {
	m.mu.Lock()
	id, ok := m.active[reviewer]
	m.mu.Unlock()
	if !ok {
		return "", false, nil
	}

	defer m.lockPost(id)()

	sess := m.session(id)
	if sess == nil || sess.reviewer != reviewer {
		return "", false, nil
	}

	in := Input{PostID: id, Reviewer: reviewer, ChatID: chatID, Text: text}
	switch {
	case sess.state == StateEditingText && text != "":
		in.Action = ActionSubmitText
	case sess.state == StateEditingTitle && text != "":
		in.Action = ActionSubmitTitle
	case sess.state == StateEditingMedia && sess.mode == mediaModeAdd && photoFileID != "":
		in.Action = ActionMediaAdd
		in.FileIDs = []string{photoFileID}
	case sess.state == StateEditingMedia && sess.mode == mediaModeRemove && text != "":
		in.Action = ActionMediaRemove
	default:
		return "", false, nil
	}

	reply, err := m.dispatchLocked(ctx, in)
	return reply, true, err
}

func (m *Machine) dispatchLocked(ctx context.Context, in Input) (string, error) {
	sess := m.session(in.PostID)
	state := StateIdle
	if sess != nil {
		if sess.reviewer != in.Reviewer {
			return "", ErrLocked
		}
		state = sess.state
	} else if holder, held := m.locks.Holder(in.PostID); held && holder != in.Reviewer {
		return "", ErrLocked
	}

	next, ok := m.table.Next(state, in.Action)
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrIllegalTransition, in.Action, state)
	}

	record, err := m.store.GetProcessed(ctx, in.PostID)
	if errors.Is(err, news.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load post: %w", err)
	}
	sent, queued, err := m.loadSent(ctx, in.PostID)
	if err != nil {
		return "", err
	}
	if queued && sent.Finalized() {
		return "", ErrFinalized
	}
	if !queued || !record.Suggested || record.Disposition != news.DispositionCandidate {
		return "", fmt.Errorf("%w: not in the moderation queue", ErrNotFound)
	}

	if sess == nil {
		sess = &session{postID: in.PostID, reviewer: in.Reviewer, chatID: in.ChatID, state: StateIdle}
	}

	reply, err := m.run(ctx, in, sess, record, sent)
	if err != nil {
		return "", err
	}
	m.settle(sess, next)

	m.logger.Info().
		Int64("id", int64(in.PostID)).
		Int64("reviewer", in.Reviewer).
		Str("action", string(in.Action)).
		Str("from", string(state)).
		Str("to", string(next)).
		Msg("moderation transition")
	return reply, nil
}

func (m *Machine) run(ctx context.Context, in Input, sess *session, record news.ProcessedRecord, sent news.SentRecord) (string, error) {
	id := record.ID
	switch in.Action {
	case ActionOpen:
		fresh := sess.state == StateIdle
		if !m.locks.Acquire(id, in.Reviewer) {
			return "", ErrLocked
		}
		if fresh {
			sess.snapshot = record.Item.Clone()
		}
		if err := m.prompt(ctx, sess, menuText(record), menuKeyboard(id)); err != nil {
			if fresh {
				m.locks.Release(id, in.Reviewer)
			}
			return "", err
		}
		return "Editing post " + id.String(), nil

	case ActionEditText:
		sess.mode = mediaModeNone
		return "", m.prompt(ctx, sess, "Send the new text.", backKeyboard(id))

	case ActionEditTitle:
		sess.mode = mediaModeNone
		return "", m.prompt(ctx, sess, "Send the new title.", backKeyboard(id))

	case ActionEditMedia:
		sess.mode = mediaModeNone
		text := fmt.Sprintf("Media: %d of %d. Add or remove photos.", len(record.Media), m.cfg.MediaCap)
		return "", m.prompt(ctx, sess, text, mediaKeyboard(id))

	case ActionSubmitText, ActionSubmitTitle:
		value := strings.TrimSpace(in.Text)
		if value == "" {
			return "", ErrEmptyValue
		}
		field := "Text"
		update := m.store.UpdateText
		if in.Action == ActionSubmitTitle {
			field = "Title"
			update = m.store.UpdateTitle
		}
		if err := update(ctx, id, value); err != nil {
			return "", fmt.Errorf("update %s: %w", strings.ToLower(field), err)
		}
		m.notify(ctx, sess, field+" updated.", menuKeyboard(id))
		return field + " updated.", nil

	case ActionMediaAddPrompt:
		sess.mode = mediaModeAdd
		free := m.cfg.MediaCap - len(record.Media)
		return "", m.prompt(ctx, sess, fmt.Sprintf("Send photos to add, up to %d more.", max(free, 0)), mediaKeyboard(id))

	case ActionMediaRemovePrompt:
		sess.mode = mediaModeRemove
		text := fmt.Sprintf("Send the positions to remove (1-%d), separated by spaces or commas.", len(record.Media))
		return "", m.prompt(ctx, sess, text, mediaKeyboard(id))

	case ActionMediaAdd:
		return m.addMedia(ctx, in, sess, record)

	case ActionMediaRemove:
		return m.removeMedia(ctx, in, sess, record)

	case ActionBack:
		sess.mode = mediaModeNone
		return "", m.prompt(ctx, sess, menuText(record), menuKeyboard(id))

	case ActionRevert:
		if err := m.store.RestoreContent(ctx, id, sess.snapshot); err != nil {
			return "", fmt.Errorf("restore post: %w", err)
		}
		reverted := record
		reverted.Item = sess.snapshot.Clone()
		m.notify(ctx, sess, "Reverted.\n\n"+menuText(reverted), menuKeyboard(id))
		return "Reverted.", nil

	case ActionDone:
		if err := m.rebuild(ctx, record, sent); err != nil {
			return "", err
		}
		m.deleteMessages(ctx, sess.chatID, sess.prompts)
		sess.prompts = nil
		return "Saved.", nil

	case ActionConfirm:
		return m.confirm(ctx, in, sess, record, sent)

	case ActionReject:
		return m.reject(ctx, in, sess, record, sent)
	}
	return "", fmt.Errorf("%w: %s", ErrIllegalTransition, in.Action)
}

func (m *Machine) addMedia(ctx context.Context, in Input, sess *session, record news.ProcessedRecord) (string, error) {
	if sess.mode != mediaModeAdd {
		return "", ErrIllegalTransition
	}
	if len(in.FileIDs) == 0 {
		return "", ErrEmptyValue
	}
	if len(record.Media)+len(in.FileIDs) > m.cfg.MediaCap {
		return "", fmt.Errorf("%w: %d photos allowed", ErrMediaCap, m.cfg.MediaCap)
	}

	names := make([]string, 0, len(in.FileIDs))
	for _, fileID := range in.FileIDs {
		link, err := m.client.FileURL(ctx, fileID)
		if err != nil {
			return "", fmt.Errorf("resolve photo: %w", err)
		}
		name, err := m.media.Fetch(ctx, link)
		if err != nil {
			return "", fmt.Errorf("download photo: %w", err)
		}
		names = append(names, name)
	}

	media := append(slices.Clone(record.Media), names...)
	if err := m.store.UpdateMedia(ctx, record.ID, media); err != nil {
		return "", fmt.Errorf("update media: %w", err)
	}
	record.Media = media
	return m.afterMediaChange(ctx, sess, record, fmt.Sprintf("Added %d photo(s), %d of %d.", len(names), len(media), m.cfg.MediaCap)), nil
}

func (m *Machine) removeMedia(ctx context.Context, in Input, sess *session, record news.ProcessedRecord) (string, error) {
	if sess.mode != mediaModeRemove {
		return "", ErrIllegalTransition
	}
	positions, err := ParsePositions(in.Text, len(record.Media))
	if err != nil {
		return "", err
	}

	drop := make(map[int]struct{}, len(positions))
	for _, index := range positions {
		drop[index] = struct{}{}
	}
	media := make([]string, 0, len(record.Media)-len(positions))
	for i, name := range record.Media {
		if _, removed := drop[i]; !removed {
			media = append(media, name)
		}
	}
	if err := m.store.UpdateMedia(ctx, record.ID, media); err != nil {
		return "", fmt.Errorf("update media: %w", err)
	}
	record.Media = media
	return m.afterMediaChange(ctx, sess, record, fmt.Sprintf("Removed %d photo(s), %d left.", len(positions), len(media))), nil
}

// afterMediaChange rebuilds the queued post. The media write already happened,
// so a failed rebuild is reported and retried on done.
func (m *Machine) afterMediaChange(ctx context.Context, sess *session, record news.ProcessedRecord, reply string) string {
	sent, err := m.store.GetSent(ctx, record.ID)
	if err == nil {
		err = m.rebuild(ctx, record, sent)
	}
	if err != nil {
		m.logger.Error().Err(err).Int64("id", int64(record.ID)).Msg("rebuild after media change failed")
		reply += " The queue message will be refreshed on Done."
	}
	m.notify(ctx, sess, reply, mediaKeyboard(record.ID))
	return reply
}

// confirm claims the post before publishing it, so a post is never published
// twice. A failed publish hands the claim back.
func (m *Machine) confirm(ctx context.Context, in Input, sess *session, record news.ProcessedRecord, sent news.SentRecord) (string, error) {
	channel := m.cfg.ChannelFor(record.Topic)
	if channel == 0 {
		return "", fmt.Errorf("no publish channel for topic %q", record.Topic)
	}

	fresh := sess.state == StateIdle
	if fresh && !m.locks.Acquire(record.ID, in.Reviewer) {
		return "", ErrLocked
	}
	release := func() {
		if fresh {
			m.locks.Release(record.ID, in.Reviewer)
		}
	}

	claimed, err := m.store.FinalizeSent(ctx, record.ID, true)
	if err != nil {
		release()
		return "", fmt.Errorf("mark confirmed: %w", err)
	}
	if !claimed {
		release()
		return "", ErrFinalized
	}

	rendered, err := m.renderer.RenderAndSend(ctx, channel, record.Item, publish.Options{})
	if err != nil {
		if reopenErr := m.store.ReopenSent(context.WithoutCancel(ctx), record.ID); reopenErr != nil {
			m.logger.Error().Err(reopenErr).Int64("id", int64(record.ID)).Msg("publish failed and the post could not be returned to the queue")
		}
		release()
		return "", fmt.Errorf("publish post: %w", err)
	}

	reply := "Published."
	if rendered.Truncated {
		reply += " The text was truncated to fit the channel limit."
	}
	m.deleteMessages(ctx, sent.ChatID, sent.MessageIDs())
	m.deleteMessages(ctx, sess.chatID, sess.prompts)
	sess.prompts = nil
	return reply, nil
}

func (m *Machine) reject(ctx context.Context, in Input, sess *session, record news.ProcessedRecord, sent news.SentRecord) (string, error) {
	fresh := sess.state == StateIdle
	if fresh && !m.locks.Acquire(record.ID, in.Reviewer) {
		return "", ErrLocked
	}
	claimed, err := m.store.FinalizeSent(ctx, record.ID, false)
	if err != nil || !claimed {
		if fresh {
			m.locks.Release(record.ID, in.Reviewer)
		}
		if err != nil {
			return "", fmt.Errorf("mark rejected: %w", err)
		}
		return "", ErrFinalized
	}
	m.deleteMessages(ctx, sent.ChatID, sent.MessageIDs())
	m.deleteMessages(ctx, sess.chatID, sess.prompts)
	sess.prompts = nil
	return "Post rejected.", nil
}

// rebuild re-renders the queued post, stores the new message set and then
// deletes the previous one. Failing to delete the previous set is tolerated.
func (m *Machine) rebuild(ctx context.Context, record news.ProcessedRecord, previous news.SentRecord) error {
	chatID := previous.ChatID
	if chatID == 0 {
		chatID = m.cfg.QueueChatID
	}

	rendered, err := m.renderer.RenderAndSend(ctx, chatID, record.Item, publish.Options{
		Meta:     true,
		Keyboard: QueueKeyboard(record.ID),
	})
	if err != nil {
		return fmt.Errorf("render post: %w", err)
	}
	if err := m.store.SaveSent(ctx, rendered.Record(record.ID)); err != nil {
		m.deleteMessages(ctx, chatID, rendered.AllIDs())
		return fmt.Errorf("save sent record: %w", err)
	}
	m.deleteMessages(ctx, previous.ChatID, previous.MessageIDs())
	return nil
}

func (m *Machine) loadSent(ctx context.Context, id news.ID) (news.SentRecord, bool, error) {
	sent, err := m.store.GetSent(ctx, id)
	if errors.Is(err, news.ErrNotFound) {
		return news.SentRecord{}, false, nil
	}
	if err != nil {
		return news.SentRecord{}, false, fmt.Errorf("load sent record: %w", err)
	}
	return sent, true, nil
}

func (m *Machine) prompt(ctx context.Context, sess *session, text string, keyboard chat.Keyboard) error {
	messageID, err := m.sender.SendText(ctx, sess.chatID, text, keyboard)
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	sess.prompts = append(sess.prompts, messageID)
	return nil
}

// notify is prompt for messages sent after a write has already succeeded.
func (m *Machine) notify(ctx context.Context, sess *session, text string, keyboard chat.Keyboard) {
	if err := m.prompt(ctx, sess, text, keyboard); err != nil {
		m.logger.Warn().Err(err).Int64("id", int64(sess.postID)).Msg("failed to send reviewer prompt")
	}
}

func (m *Machine) deleteMessages(ctx context.Context, chatID int64, ids []int) {
	if len(ids) == 0 {
		return
	}
	if err := m.sender.Delete(context.WithoutCancel(ctx), chatID, ids); err != nil {
		m.logger.Warn().Err(err).Int64("chat_id", chatID).Ints("message_ids", ids).Msg("failed to delete messages")
	}
}

func (m *Machine) settle(sess *session, next State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.state = next
	if next == StateIdle || next.Terminal() {
		delete(m.sessions, sess.postID)
		if m.active[sess.reviewer] == sess.postID {
			delete(m.active, sess.reviewer)
		}
		m.locks.Release(sess.postID, sess.reviewer)
		return
	}
	m.sessions[sess.postID] = sess
	m.active[sess.reviewer] = sess.postID
}

func (m *Machine) session(id news.ID) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// postGate serializes actions on one post. It lives only while a caller
// holds or waits for it.
type postGate struct {
	mu   sync.Mutex
	refs int
}

// lockPost locks the gate of id and returns its unlock func.
func (m *Machine) lockPost(id news.ID) func() {
	m.mu.Lock()
	gate, ok := m.posts[id]
	if !ok {
		gate = &postGate{}
		m.posts[id] = gate
	}
	gate.refs++
	m.mu.Unlock()

	gate.mu.Lock()
	return func() {
		gate.mu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()
		gate.refs--
		if gate.refs == 0 {
			delete(m.posts, id)
		}
	}
}

// ParsePositions converts 1-based positions separated by spaces or commas into
// sorted unique 0-based indexes below n.
func ParsePositions(raw string, n int) ([]int, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, ErrInvalidPositions
	}

	seen := make(map[int]struct{}, len(fields))
	out := make([]int, 0, len(fields))
	for _, field := range fields {
		position, err := strconv.Atoi(field)
		if err != nil || position < 1 || position > n {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPositions, field)
		}
		if _, dup := seen[position]; dup {
			continue
		}
		seen[position] = struct{}{}
		out = append(out, position-1)
	}
	slices.Sort(out)
	return out, nil
}

func menuText(record news.ProcessedRecord) string {
	preview, _ := reader.TruncateText(record.Text, menuPreviewChars)
	return fmt.Sprintf(
		"Editing post <code>%s</code>\n\n<b>Title:</b> %s\n\n<b>Text:</b>\n%s\n\n<b>Media:</b> %d",
		record.ID,
		html.EscapeString(record.Title),
		html.EscapeString(preview),
		len(record.Media),
	)
}
