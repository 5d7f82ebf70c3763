package news

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ID is the content-address identifier of a news item.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses the decimal form produced by ID.String.
func ParseID(raw string) (ID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(value), nil
}

const (
	DispositionCandidate = "candidate"
	DispositionBootstrap = "bootstrap"
	DispositionDuplicate = "duplicate"
)

const UndeterminedLanguage = "und"

// ErrNotFound is returned by stores when a record id has no row.
var ErrNotFound = errors.New("record not found")

// Item holds the fields shared by every lifecycle stage.
type Item struct {
	ID          ID
	Title       string
	URL         string
	PublishedAt *time.Time
	Text        string
	Media       []string
	Language    string
	Topic       string
}

// RawRecord is created once per unique URL by ingestion.
type RawRecord struct {
	Item
	CreatedAt time.Time
}

// ProcessedRecord is the moderation candidate produced by transformation.
type ProcessedRecord struct {
	Item
	Suggested   bool
	Disposition string
	Embedding   []float64
	DuplicateOf *ID
	Similarity  *float64
	ProcessedAt time.Time
	UpdatedAt   time.Time
}

// SentRecord tracks every chat message rendered for one post in the moderation queue.
type SentRecord struct {
	ID               ID
	ChatID           int64
	PrimaryMessageID int
	AlbumMessageIDs  []int
	MetaMessageID    int
	Confirmed        bool
	Rejected         bool
	SentAt           time.Time
	UpdatedAt        time.Time
	FinalizedAt      *time.Time
}

// Finalized reports whether the post left the moderation queue.
func (s SentRecord) Finalized() bool {
	return s.Confirmed || s.Rejected
}

// MessageIDs returns the album ids followed by the metadata message id.
func (s SentRecord) MessageIDs() []int {
	ids := make([]int, 0, len(s.AlbumMessageIDs)+2)
	seen := make(map[int]struct{}, len(s.AlbumMessageIDs)+2)
	add := func(id int) {
		if id <= 0 {
			return
		}
		if _, exists := seen[id]; exists {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(s.PrimaryMessageID)
	for _, id := range s.AlbumMessageIDs {
		add(id)
	}
	add(s.MetaMessageID)
	return ids
}

// Clone returns a deep copy of the item so callers can mutate media safely.
func (i Item) Clone() Item {
	out := i
	if i.Media != nil {
		out.Media = append([]string(nil), i.Media...)
	}
	if i.PublishedAt != nil {
		published := *i.PublishedAt
		out.PublishedAt = &published
	}
	return out
}

// Reference is a stored embedding that candidates are compared against.
type Reference struct {
	ID     ID
	Vector []float64
}

// QueueStats summarizes the pipeline tables.
type QueueStats struct {
	Raw           int64 `json:"raw"`
	PendingRaw    int64 `json:"pending_raw"`
	Processed     int64 `json:"processed"`
	Candidates    int64 `json:"candidates"`
	Duplicates    int64 `json:"duplicates"`
	Bootstrapped  int64 `json:"bootstrapped"`
	AwaitingQueue int64 `json:"awaiting_queue"`
	InQueue       int64 `json:"in_queue"`
	Confirmed     int64 `json:"confirmed"`
	Rejected      int64 `json:"rejected"`
}
