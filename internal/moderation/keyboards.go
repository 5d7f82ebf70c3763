package moderation

import (
	"fmt"
	"strings"

	"horse.fit/newsdesk/internal/chat"
	"horse.fit/newsdesk/internal/news"
)

var callbackActions = map[string]Action{
	"edit":    ActionOpen,
	"delete":  ActionReject,
	"confirm": ActionConfirm,
	"text":    ActionEditText,
	"title":   ActionEditTitle,
	"media":   ActionEditMedia,
	"madd":    ActionMediaAddPrompt,
	"mdel":    ActionMediaRemovePrompt,
	"back":    ActionBack,
	"revert":  ActionRevert,
	"done":    ActionDone,
}

func button(text, prefix string, id news.ID) chat.Button {
	return chat.Button{Text: text, Data: prefix + ":" + id.String()}
}

// ParseCallback decodes "<prefix>:<post id>" button data.
func ParseCallback(data string) (Action, news.ID, error) {
	prefix, rawID, found := strings.Cut(strings.TrimSpace(data), ":")
	if !found {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	action, ok := callbackActions[prefix]
	if !ok {
		return "", 0, fmt.Errorf("unknown callback %q", prefix)
	}
	id, err := news.ParseID(rawID)
	if err != nil {
		return "", 0, fmt.Errorf("callback post id: %w", err)
	}
	return action, id, nil
}

// QueueKeyboard is attached to every post in the moderation queue.
func QueueKeyboard(id news.ID) chat.Keyboard {
	return chat.Keyboard{{
		button("✏️ Edit", "edit", id),
		button("🗑 Delete", "delete", id),
		button("✅ Confirm", "confirm", id),
	}}
}

func menuKeyboard(id news.ID) chat.Keyboard {
	return chat.Keyboard{
		{button("Text", "text", id), button("Title", "title", id), button("Media", "media", id)},
		{button("⏪ Revert", "revert", id)},
		{button("✅ Done", "done", id)},
	}
}

func mediaKeyboard(id news.ID) chat.Keyboard {
	return chat.Keyboard{
		{button("➕ Add", "madd", id), button("➖ Remove", "mdel", id)},
		{button("🔙 Back", "back", id)},
	}
}

func backKeyboard(id news.ID) chat.Keyboard {
	return chat.Keyboard{{button("🔙 Back", "back", id)}}
}
