package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const updatesTimeoutSeconds = 30

// Telegram implements Client with the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

func NewTelegram(token string, logger zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return &Telegram{bot: bot, logger: logger}, nil
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		msg.ReplyMarkup = inlineMarkup(keyboard)
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, mapError(err)
	}
	return sent.MessageID, nil
}

func (t *Telegram) SendAlbum(ctx context.Context, chatID int64, photos []string, caption string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("album is empty")
	}

	if len(photos) == 1 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photos[0]))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		sent, err := t.bot.Send(photo)
		if err != nil {
			return nil, mapError(err)
		}
		return []int{sent.MessageID}, nil
	}

	media := make([]any, 0, len(photos))
	for i, path := range photos {
		item := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path))
		if i == 0 {
			item.Caption = caption
			item.ParseMode = tgbotapi.ModeHTML
		}
		media = append(media, item)
	}
	sent, err := t.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		return nil, mapError(err)
	}
	ids := make([]int, 0, len(sent))
	for _, msg := range sent {
		ids = append(ids, msg.MessageID)
	}
	return ids, nil
}

// DeleteMessages deletes every id; ids that are already gone are skipped.
func (t *Telegram) DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error {
	var errs []error
	for _, id := range messageIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			mapped := mapError(err)
			if errors.Is(mapped, ErrMessageNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("delete message %d: %w", id, mapped))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return mapError(err)
	}
	return nil
}

func (t *Telegram) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	link, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", mapError(err)
	}
	return link, nil
}

// Updates long-polls until ctx is done.
func (t *Telegram) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updatesTimeoutSeconds
	source := t.bot.GetUpdatesChan(cfg)

	out := make(chan Update)
	go func() {
		defer close(out)
		defer t.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-source:
				if !ok {
					return
				}
				update, ok := convertUpdate(raw)
				if !ok {
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func convertUpdate(raw tgbotapi.Update) (Update, bool) {
	switch {
	case raw.CallbackQuery != nil:
		cb := raw.CallbackQuery
		callback := &Callback{ID: cb.ID, Data: cb.Data}
		if cb.From != nil {
			callback.UserID = cb.From.ID
		}
		if cb.Message != nil {
			callback.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				callback.ChatID = cb.Message.Chat.ID
			}
		}
		return Update{Callback: callback}, true
	case raw.Message != nil:
		msg := raw.Message
		message := &Message{ID: msg.MessageID, Text: msg.Text}
		if msg.Chat != nil {
			message.ChatID = msg.Chat.ID
		}
		if msg.From != nil {
			message.UserID = msg.From.ID
		}
		if len(msg.Photo) > 0 {
			message.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
		}
		if message.Text == "" {
			message.Text = msg.Caption
		}
		return Update{Message: message}, true
	default:
		return Update{}, false
	}
}

func inlineMarkup(keyboard Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// mapError turns Bot API errors into ThrottleError and ErrMessageNotFound.
func mapError(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.RetryAfter > 0 {
		return &ThrottleError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second, Err: err}
	}
	message := strings.ToLower(apiErr.Message)
	if strings.Contains(message, "message to delete not found") || strings.Contains(message, "message not found") {
		return fmt.Errorf("%w: %v", ErrMessageNotFound, err)
	}
	return err
}
