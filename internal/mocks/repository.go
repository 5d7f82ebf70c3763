package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

// Repository is an in-memory stand-in for db.Repository.
type Repository struct {
	mu        sync.Mutex
	Raw       map[news.ID]news.RawRecord
	Processed map[news.ID]news.ProcessedRecord
	Sent      map[news.ID]news.SentRecord
	Settings  map[string]string

	InsertRawErr       error
	InsertProcessedErr error
	SaveSentErr        error
	MarkSuggestedErr   error
	UpdateErr          error
	FinalizeErr        error
	ReopenErr          error

	InsertRawCalls int
	SaveSentCalls  int
}

func NewRepository() *Repository {
	return &Repository{
		Raw:       make(map[news.ID]news.RawRecord),
		Processed: make(map[news.ID]news.ProcessedRecord),
		Sent:      make(map[news.ID]news.SentRecord),
		Settings:  make(map[string]string),
	}
}

func (m *Repository) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		wanted[u] = struct{}{}
	}
	out := make(map[string]struct{})
	for _, record := range m.Raw {
		if _, ok := wanted[record.URL]; ok {
			out[record.URL] = struct{}{}
		}
	}
	return out, nil
}

func (m *Repository) InsertRaw(ctx context.Context, records []news.RawRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertRawCalls++
	if m.InsertRawErr != nil {
		return 0, m.InsertRawErr
	}
	inserted := 0
	for _, record := range records {
		if _, exists := m.Raw[record.ID]; exists {
			continue
		}
		if m.urlTaken(record.URL) {
			continue
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = globaltime.UTC().Add(time.Duration(len(m.Raw)) * time.Microsecond)
		}
		record.Item = record.Item.Clone()
		m.Raw[record.ID] = record
		inserted++
	}
	return inserted, nil
}

func (m *Repository) urlTaken(url string) bool {
	for _, record := range m.Raw {
		if record.URL == url {
			return true
		}
	}
	return false
}

func (m *Repository) PendingRaw(ctx context.Context, limit int) ([]news.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]news.RawRecord, 0, len(m.Raw))
	for id, record := range m.Raw {
		if _, done := m.Processed[id]; done {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Repository) InsertProcessed(ctx context.Context, records []news.ProcessedRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertProcessedErr != nil {
		return 0, m.InsertProcessedErr
	}
	now := globaltime.UTC()
	inserted := 0
	for _, record := range records {
		if _, exists := m.Processed[record.ID]; exists {
			continue
		}
		if record.ProcessedAt.IsZero() {
			record.ProcessedAt = now
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = record.ProcessedAt
		}
		if record.Disposition == "" {
			record.Disposition = news.DispositionCandidate
		}
		record.Item = record.Item.Clone()
		m.Processed[record.ID] = record
		inserted++
	}
	return inserted, nil
}

func (m *Repository) RecentEmbeddings(ctx context.Context, since time.Time) ([]news.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var refs []news.Reference
	for _, record := range m.Processed {
		if record.Disposition != news.DispositionCandidate || len(record.Embedding) == 0 {
			continue
		}
		if record.ProcessedAt.Before(since) {
			continue
		}
		refs = append(refs, news.Reference{ID: record.ID, Vector: append([]float64(nil), record.Embedding...)})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (m *Repository) UnsuggestedCandidates(ctx context.Context, limit int) ([]news.ProcessedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []news.ProcessedRecord
	for _, record := range m.Processed {
		if record.Suggested || record.Disposition != news.DispositionCandidate {
			continue
		}
		out = append(out, cloneProcessed(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.Before(out[j].ProcessedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Repository) MarkSuggested(ctx context.Context, id news.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkSuggestedErr != nil {
		return false, m.MarkSuggestedErr
	}
	record, ok := m.Processed[id]
	if !ok || record.Suggested {
		return false, nil
	}
	record.Suggested = true
	record.UpdatedAt = globaltime.UTC()
	m.Processed[id] = record
	return true, nil
}

func (m *Repository) GetProcessed(ctx context.Context, id news.ID) (news.ProcessedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.Processed[id]
	if !ok {
		return news.ProcessedRecord{}, news.ErrNotFound
	}
	return cloneProcessed(record), nil
}

func (m *Repository) UpdateTitle(ctx context.Context, id news.ID, title string) error {
	return m.update(id, func(record *news.ProcessedRecord) { record.Title = title })
}

func (m *Repository) UpdateText(ctx context.Context, id news.ID, text string) error {
	return m.update(id, func(record *news.ProcessedRecord) { record.Text = text })
}

func (m *Repository) UpdateMedia(ctx context.Context, id news.ID, media []string) error {
	return m.update(id, func(record *news.ProcessedRecord) { record.Media = append([]string(nil), media...) })
}

func (m *Repository) RestoreContent(ctx context.Context, id news.ID, item news.Item) error {
	return m.update(id, func(record *news.ProcessedRecord) {
		record.Title = item.Title
		record.Text = item.Text
		record.Media = append([]string(nil), item.Media...)
	})
}

func (m *Repository) update(id news.ID, apply func(*news.ProcessedRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	record, ok := m.Processed[id]
	if !ok {
		return news.ErrNotFound
	}
	apply(&record)
	record.UpdatedAt = globaltime.UTC()
	m.Processed[id] = record
	return nil
}

func (m *Repository) SaveSent(ctx context.Context, record news.SentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveSentCalls++
	if m.SaveSentErr != nil {
		return m.SaveSentErr
	}
	now := globaltime.UTC()
	if existing, ok := m.Sent[record.ID]; ok {
		existing.ChatID = record.ChatID
		existing.PrimaryMessageID = record.PrimaryMessageID
		existing.AlbumMessageIDs = append([]int(nil), record.AlbumMessageIDs...)
		existing.MetaMessageID = record.MetaMessageID
		existing.UpdatedAt = now
		m.Sent[record.ID] = existing
		return nil
	}
	if record.SentAt.IsZero() {
		record.SentAt = now
	}
	record.UpdatedAt = now
	record.AlbumMessageIDs = append([]int(nil), record.AlbumMessageIDs...)
	m.Sent[record.ID] = record
	return nil
}

func (m *Repository) GetSent(ctx context.Context, id news.ID) (news.SentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.Sent[id]
	if !ok {
		return news.SentRecord{}, news.ErrNotFound
	}
	record.AlbumMessageIDs = append([]int(nil), record.AlbumMessageIDs...)
	return record, nil
}

func (m *Repository) FinalizeSent(ctx context.Context, id news.ID, confirmed bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FinalizeErr != nil {
		return false, m.FinalizeErr
	}
	record, ok := m.Sent[id]
	if !ok || record.Finalized() {
		return false, nil
	}
	now := globaltime.UTC()
	record.Confirmed = confirmed
	record.Rejected = !confirmed
	record.FinalizedAt = &now
	record.UpdatedAt = now
	m.Sent[id] = record
	return true, nil
}

func (m *Repository) ReopenSent(ctx context.Context, id news.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReopenErr != nil {
		return m.ReopenErr
	}
	record, ok := m.Sent[id]
	if !ok {
		return nil
	}
	record.Confirmed = false
	record.Rejected = false
	record.FinalizedAt = nil
	record.UpdatedAt = globaltime.UTC()
	m.Sent[id] = record
	return nil
}

func (m *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.Settings[key]
	return value, ok, nil
}

func (m *Repository) PutSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Settings[key] = value
	return nil
}

func (m *Repository) Stats(ctx context.Context) (news.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats news.QueueStats
	stats.Raw = int64(len(m.Raw))
	for id := range m.Raw {
		if _, ok := m.Processed[id]; !ok {
			stats.PendingRaw++
		}
	}
	stats.Processed = int64(len(m.Processed))
	for _, record := range m.Processed {
		switch record.Disposition {
		case news.DispositionCandidate:
			stats.Candidates++
			if !record.Suggested {
				stats.AwaitingQueue++
			}
		case news.DispositionDuplicate:
			stats.Duplicates++
		case news.DispositionBootstrap:
			stats.Bootstrapped++
		}
	}
	for _, record := range m.Sent {
		switch {
		case record.Confirmed:
			stats.Confirmed++
		case record.Rejected:
			stats.Rejected++
		default:
			stats.InQueue++
		}
	}
	return stats, nil
}

// Seed stores a processed candidate directly, bypassing the pipeline.
func (m *Repository) Seed(record news.ProcessedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.Disposition == "" {
		record.Disposition = news.DispositionCandidate
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = globaltime.UTC()
	}
	m.Processed[record.ID] = cloneProcessed(record)
}

func cloneProcessed(record news.ProcessedRecord) news.ProcessedRecord {
	out := record
	out.Item = record.Item.Clone()
	if record.Embedding != nil {
		out.Embedding = append([]float64(nil), record.Embedding...)
	}
	return out
}
