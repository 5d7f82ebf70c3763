package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/reader"
)

// Chat protocol limits, counted in visible characters.
const (
	AlbumLimit   = 10
	CaptionLimit = 1024
	TextLimit    = 4096
)

// MediaLocator maps stored media names to files on disk.
type MediaLocator interface {
	Path(name string) string
	Exists(name string) bool
}

type Renderer struct {
	sender *Sender
	media  MediaLocator
	logger zerolog.Logger
}

func NewRenderer(sender *Sender, media MediaLocator, logger zerolog.Logger) *Renderer {
	return &Renderer{
		sender: sender,
		media:  media,
		logger: logger.With().Str("component", "renderer").Logger(),
	}
}

func (r *Renderer) Sender() *Sender {
	return r.sender
}

type Options struct {
	// Meta follows the post with a metadata message carrying Keyboard.
	Meta     bool
	Keyboard chat.Keyboard
}

// Rendered lists the messages produced for one post.
type Rendered struct {
	ChatID    int64
	PrimaryID int
	AlbumIDs  []int
	MetaID    int
	Truncated bool
}

// Record converts the render into the persisted message set of a post.
func (r Rendered) Record(id news.ID) news.SentRecord {
	return news.SentRecord{
		ID:               id,
		ChatID:           r.ChatID,
		PrimaryMessageID: r.PrimaryID,
		AlbumMessageIDs:  append([]int(nil), r.AlbumIDs...),
		MetaMessageID:    r.MetaID,
	}
}

// AllIDs returns every message id of the render, each once.
func (r Rendered) AllIDs() []int {
	return r.Record(0).MessageIDs()
}

// RenderAndSend sends item to chatID. On a failed send the messages already
// produced by this call are deleted before the error is returned.
func (r *Renderer) RenderAndSend(ctx context.Context, chatID int64, item news.Item, opts Options) (Rendered, error) {
	out := Rendered{ChatID: chatID}

	photos := r.photoPaths(item)
	if len(photos) > 0 {
		caption, truncated := FormatPost(item.Title, item.Text, CaptionLimit)
		ids, err := r.sender.SendAlbum(ctx, chatID, photos, caption)
		if err != nil {
			return Rendered{}, fmt.Errorf("send album id=%d: %w", item.ID, err)
		}
		if len(ids) == 0 {
			return Rendered{}, fmt.Errorf("send album id=%d: no message ids returned", item.ID)
		}
		out.PrimaryID = ids[0]
		out.AlbumIDs = ids
		out.Truncated = truncated
	} else {
		text, truncated := FormatPost(item.Title, item.Text, TextLimit)
		id, err := r.sender.SendText(ctx, chatID, text, nil)
		if err != nil {
			return Rendered{}, fmt.Errorf("send text id=%d: %w", item.ID, err)
		}
		out.PrimaryID = id
		out.Truncated = truncated
	}

	if !opts.Meta {
		return out, nil
	}

	limit := TextLimit
	if len(photos) > 0 {
		limit = CaptionLimit
	}
	metaID, err := r.sender.SendText(ctx, chatID, MetaText(item, out.Truncated, limit), opts.Keyboard)
	if err != nil {
		r.discard(ctx, out)
		return Rendered{}, fmt.Errorf("send metadata id=%d: %w", item.ID, err)
	}
	out.MetaID = metaID
	return out, nil
}

func (r *Renderer) discard(ctx context.Context, rendered Rendered) {
	if err := r.sender.Delete(context.WithoutCancel(ctx), rendered.ChatID, rendered.AllIDs()); err != nil {
		r.logger.Error().Err(err).Ints("message_ids", rendered.AllIDs()).Msg("failed to delete partial render")
	}
}

func (r *Renderer) photoPaths(item news.Item) []string {
	if r.media == nil {
		return nil
	}
	paths := make([]string, 0, min(len(item.Media), AlbumLimit))
	for _, name := range item.Media {
		if len(paths) == AlbumLimit {
			break
		}
		if !r.media.Exists(name) {
			r.logger.Warn().Int64("id", int64(item.ID)).Str("media", name).Msg("media file missing, skipping")
			continue
		}
		paths = append(paths, r.media.Path(name))
	}
	return paths
}

// FormatPost renders a bold title and the body as HTML within limit visible characters.
func FormatPost(title, body string, limit int) (string, bool) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	if title == "" {
		clipped, truncated := reader.TruncateText(body, limit)
		return html.EscapeString(clipped), truncated
	}

	title, titleCut := reader.TruncateText(title, limit)
	heading := "<b>" + html.EscapeString(title) + "</b>"
	budget := limit - utf8.RuneCountInString(title) - 2
	if body == "" {
		return heading, titleCut
	}
	if budget <= 0 {
		return heading, true
	}
	body, bodyCut := reader.TruncateText(body, budget)
	return heading + "\n\n" + html.EscapeString(body), titleCut || bodyCut
}

// MetaText describes the post for reviewers.
func MetaText(item news.Item, truncated bool, limit int) string {
	var b strings.Builder
	if item.URL != "" {
		escaped := html.EscapeString(item.URL)
		fmt.Fprintf(&b, "Source: <a href=\"%s\">%s</a>\n", escaped, escaped)
	}
	fmt.Fprintf(&b, "ID: <code>%s</code>", item.ID)
	if item.Topic != "" {
		fmt.Fprintf(&b, "\nTopic: %s", html.EscapeString(item.Topic))
	}
	if truncated {
		fmt.Fprintf(&b, "\n⚠️ Text was truncated to %d characters.", limit)
	}
	return b.String()
}

// IsThrottled reports whether err came from chat rate limiting.
func IsThrottled(err error) bool {
	var throttle *chat.ThrottleError
	return errors.As(err, &throttle)
}
