package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

const insertBatchSize = 200

// Repository stores the raw, processed and sent projections of news items.
type Repository struct {
	pool *Pool
}

func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context) (*gorm.DB, error) {
	if r == nil || r.pool == nil || r.pool.gdb == nil {
		return nil, fmt.Errorf("repository is not initialized")
	}
	return r.pool.gdb.WithContext(ctx), nil
}

// ExistingURLs returns the subset of urls already stored as raw items.
func (r *Repository) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(urls))
	if len(urls) == 0 {
		return out, nil
	}
	gdb, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var found []string
	if err := gdb.Model(&RawItem{}).Where("url IN ?", urls).Pluck("url", &found).Error; err != nil {
		return nil, fmt.Errorf("select existing raw urls: %w", err)
	}
	for _, u := range found {
		out[u] = struct{}{}
	}
	return out, nil
}

// InsertRaw inserts records idempotently and returns the number of new rows.
func (r *Repository) InsertRaw(ctx context.Context, records []news.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	gdb, err := r.db(ctx)
	if err != nil {
		return 0, err
	}

	now := globaltime.UTC()
	rows := make([]RawItem, 0, len(records))
	for _, record := range records {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		row, err := rawItemFromRecord(record)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	res := gdb.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, insertBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("insert raw items: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// PendingRaw lists raw items that have no processed row yet, oldest first.
func (r *Repository) PendingRaw(ctx context.Context, limit int) ([]news.RawRecord, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []RawItem
	err = gdb.
		Where("NOT EXISTS (SELECT 1 FROM newsdesk.processed_items p WHERE p.id = newsdesk.raw_items.id)").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select pending raw items: %w", err)
	}

	records := make([]news.RawRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// InsertProcessed writes records idempotently and returns the number of new rows.
func (r *Repository) InsertProcessed(ctx context.Context, records []news.ProcessedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	gdb, err := r.db(ctx)
	if err != nil {
		return 0, err
	}

	now := globaltime.UTC()
	rows := make([]ProcessedItem, 0, len(records))
	for _, record := range records {
		if record.ProcessedAt.IsZero() {
			record.ProcessedAt = now
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = record.ProcessedAt
		}
		row, err := processedItemFromRecord(record)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	res := gdb.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, insertBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("insert processed items: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// RecentEmbeddings loads candidate embeddings processed at or after since.
func (r *Repository) RecentEmbeddings(ctx context.Context, since time.Time) ([]news.Reference, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []ProcessedItem
	err = gdb.
		Select("id", "embedding").
		Where("disposition = ? AND embedding IS NOT NULL AND processed_at >= ?", news.DispositionCandidate, since).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select recent embeddings: %w", err)
	}

	refs := make([]news.Reference, 0, len(rows))
	for _, row := range rows {
		vector, err := decodeVector(row.Embedding)
		if err != nil {
			return nil, fmt.Errorf("decode embedding id=%d: %w", row.ID, err)
		}
		if len(vector) == 0 {
			continue
		}
		refs = append(refs, news.Reference{ID: news.ID(row.ID), Vector: vector})
	}
	return refs, nil
}

// UnsuggestedCandidates lists candidates not yet sent to the moderation queue.
func (r *Repository) UnsuggestedCandidates(ctx context.Context, limit int) ([]news.ProcessedRecord, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []ProcessedItem
	err = gdb.
		Where("suggested = ? AND disposition = ?", false, news.DispositionCandidate).
		Order("processed_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select unsuggested candidates: %w", err)
	}
	return processedRecords(rows)
}

// MarkSuggested flips suggested to true once; it reports false when it was already set.
func (r *Repository) MarkSuggested(ctx context.Context, id news.ID) (bool, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return false, err
	}

	res := gdb.Model(&ProcessedItem{}).
		Where("id = ? AND suggested = ?", int64(id), false).
		Updates(map[string]any{"suggested": true, "updated_at": globaltime.UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("mark suggested id=%d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) GetProcessed(ctx context.Context, id news.ID) (news.ProcessedRecord, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return news.ProcessedRecord{}, err
	}

	var row ProcessedItem
	if err := gdb.Where("id = ?", int64(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return news.ProcessedRecord{}, ErrNotFound
		}
		return news.ProcessedRecord{}, fmt.Errorf("select processed id=%d: %w", id, err)
	}
	return row.toRecord()
}

func (r *Repository) UpdateTitle(ctx context.Context, id news.ID, title string) error {
	return r.updateProcessed(ctx, id, map[string]any{"title": title})
}

func (r *Repository) UpdateText(ctx context.Context, id news.ID, text string) error {
	return r.updateProcessed(ctx, id, map[string]any{"body": text})
}

func (r *Repository) UpdateMedia(ctx context.Context, id news.ID, media []string) error {
	encoded, err := encodeJSON(mediaOrEmpty(media))
	if err != nil {
		return fmt.Errorf("encode media id=%d: %w", id, err)
	}
	return r.updateProcessed(ctx, id, map[string]any{"media": encoded})
}

// RestoreContent overwrites title, text and media in one statement.
func (r *Repository) RestoreContent(ctx context.Context, id news.ID, item news.Item) error {
	encoded, err := encodeJSON(mediaOrEmpty(item.Media))
	if err != nil {
		return fmt.Errorf("encode media id=%d: %w", id, err)
	}
	return r.updateProcessed(ctx, id, map[string]any{
		"title": item.Title,
		"body":  item.Text,
		"media": encoded,
	})
}

func (r *Repository) updateProcessed(ctx context.Context, id news.ID, fields map[string]any) error {
	gdb, err := r.db(ctx)
	if err != nil {
		return err
	}
	fields["updated_at"] = globaltime.UTC()

	res := gdb.Model(&ProcessedItem{}).Where("id = ?", int64(id)).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update processed id=%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSent upserts the message ids rendered for a post.
func (r *Repository) SaveSent(ctx context.Context, record news.SentRecord) error {
	gdb, err := r.db(ctx)
	if err != nil {
		return err
	}

	now := globaltime.UTC()
	if record.SentAt.IsZero() {
		record.SentAt = now
	}
	record.UpdatedAt = now
	row, err := sentItemFromRecord(record)
	if err != nil {
		return err
	}

	err = gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "primary_message_id", "album_message_ids", "meta_message_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save sent id=%d: %w", record.ID, err)
	}
	return nil
}

func (r *Repository) GetSent(ctx context.Context, id news.ID) (news.SentRecord, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return news.SentRecord{}, err
	}

	var row SentItem
	if err := gdb.Where("id = ?", int64(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return news.SentRecord{}, ErrNotFound
		}
		return news.SentRecord{}, fmt.Errorf("select sent id=%d: %w", id, err)
	}
	return row.toRecord()
}

// FinalizeSent marks a queued post confirmed or rejected. It reports false when already finalized.
func (r *Repository) FinalizeSent(ctx context.Context, id news.ID, confirmed bool) (bool, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return false, err
	}

	now := globaltime.UTC()
	fields := map[string]any{
		"finalized_at": now,
		"updated_at":   now,
	}
	if confirmed {
		fields["confirmed"] = true
	} else {
		fields["rejected"] = true
	}

	res := gdb.Model(&SentItem{}).
		Where("id = ? AND confirmed = ? AND rejected = ?", int64(id), false, false).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("finalize sent id=%d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReopenSent returns a finalized post to the moderation queue.
func (r *Repository) ReopenSent(ctx context.Context, id news.ID) error {
	gdb, err := r.db(ctx)
	if err != nil {
		return err
	}

	res := gdb.Model(&SentItem{}).
		Where("id = ?", int64(id)).
		Updates(map[string]any{
			"confirmed":    false,
			"rejected":     false,
			"finalized_at": nil,
			"updated_at":   globaltime.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("reopen sent id=%d: %w", id, res.Error)
	}
	return nil
}

func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return "", false, err
	}

	var row PipelineSetting
	if err := gdb.Where("key = ?", strings.TrimSpace(key)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select setting %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (r *Repository) PutSetting(ctx context.Context, key, value string) error {
	gdb, err := r.db(ctx)
	if err != nil {
		return err
	}

	row := PipelineSetting{Key: strings.TrimSpace(key), Value: value, UpdatedAt: globaltime.UTC()}
	err = gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Stats counts rows per lifecycle stage.
func (r *Repository) Stats(ctx context.Context) (news.QueueStats, error) {
	gdb, err := r.db(ctx)
	if err != nil {
		return news.QueueStats{}, err
	}

	var stats news.QueueStats
	counts := []struct {
		label string
		dest  *int64
		query *gorm.DB
	}{
		{"raw", &stats.Raw, gdb.Model(&RawItem{})},
		{"pending raw", &stats.PendingRaw, gdb.Model(&RawItem{}).Where("NOT EXISTS (SELECT 1 FROM newsdesk.processed_items p WHERE p.id = newsdesk.raw_items.id)")},
		{"processed", &stats.Processed, gdb.Model(&ProcessedItem{})},
		{"candidates", &stats.Candidates, gdb.Model(&ProcessedItem{}).Where("disposition = ?", news.DispositionCandidate)},
		{"duplicates", &stats.Duplicates, gdb.Model(&ProcessedItem{}).Where("disposition = ?", news.DispositionDuplicate)},
		{"bootstrapped", &stats.Bootstrapped, gdb.Model(&ProcessedItem{}).Where("disposition = ?", news.DispositionBootstrap)},
		{"awaiting queue", &stats.AwaitingQueue, gdb.Model(&ProcessedItem{}).Where("disposition = ? AND suggested = ?", news.DispositionCandidate, false)},
		{"in queue", &stats.InQueue, gdb.Model(&SentItem{}).Where("confirmed = ? AND rejected = ?", false, false)},
		{"confirmed", &stats.Confirmed, gdb.Model(&SentItem{}).Where("confirmed = ?", true)},
		{"rejected", &stats.Rejected, gdb.Model(&SentItem{}).Where("rejected = ?", true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return news.QueueStats{}, fmt.Errorf("count %s: %w", c.label, err)
		}
	}
	return stats, nil
}

func processedRecords(rows []ProcessedItem) ([]news.ProcessedRecord, error) {
	records := make([]news.ProcessedRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
