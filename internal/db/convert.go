package db

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"horse.fit/newsdesk/internal/news"
)

func encodeJSON(value any) (datatypes.JSON, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeStrings(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInts(raw datatypes.JSON) ([]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []int
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeVector(raw datatypes.JSON) ([]float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mediaOrEmpty(media []string) []string {
	if media == nil {
		return []string{}
	}
	return media
}

func rawItemFromRecord(record news.RawRecord) (RawItem, error) {
	media, err := encodeJSON(mediaOrEmpty(record.Media))
	if err != nil {
		return RawItem{}, fmt.Errorf("encode media id=%d: %w", record.ID, err)
	}
	return RawItem{
		ID:          int64(record.ID),
		Title:       record.Title,
		URL:         record.URL,
		PublishedAt: record.PublishedAt,
		Body:        record.Text,
		Media:       media,
		Language:    record.Language,
		Topic:       record.Topic,
		CreatedAt:   record.CreatedAt,
	}, nil
}

func (r RawItem) toRecord() (news.RawRecord, error) {
	media, err := decodeStrings(r.Media)
	if err != nil {
		return news.RawRecord{}, fmt.Errorf("decode media id=%d: %w", r.ID, err)
	}
	return news.RawRecord{
		Item: news.Item{
			ID:          news.ID(r.ID),
			Title:       r.Title,
			URL:         r.URL,
			PublishedAt: r.PublishedAt,
			Text:        r.Body,
			Media:       media,
			Language:    r.Language,
			Topic:       r.Topic,
		},
		CreatedAt: r.CreatedAt,
	}, nil
}

func processedItemFromRecord(record news.ProcessedRecord) (ProcessedItem, error) {
	media, err := encodeJSON(mediaOrEmpty(record.Media))
	if err != nil {
		return ProcessedItem{}, fmt.Errorf("encode media id=%d: %w", record.ID, err)
	}
	var embedding datatypes.JSON
	if len(record.Embedding) > 0 {
		embedding, err = encodeJSON(record.Embedding)
		if err != nil {
			return ProcessedItem{}, fmt.Errorf("encode embedding id=%d: %w", record.ID, err)
		}
	}
	disposition := record.Disposition
	if disposition == "" {
		disposition = news.DispositionCandidate
	}

	row := ProcessedItem{
		ID:          int64(record.ID),
		Title:       record.Title,
		URL:         record.URL,
		PublishedAt: record.PublishedAt,
		Body:        record.Text,
		Media:       media,
		Language:    record.Language,
		Topic:       record.Topic,
		Suggested:   record.Suggested,
		Disposition: disposition,
		Embedding:   embedding,
		Similarity:  record.Similarity,
		ProcessedAt: record.ProcessedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if record.DuplicateOf != nil {
		duplicateOf := int64(*record.DuplicateOf)
		row.DuplicateOf = &duplicateOf
	}
	return row, nil
}

func (p ProcessedItem) toRecord() (news.ProcessedRecord, error) {
	media, err := decodeStrings(p.Media)
	if err != nil {
		return news.ProcessedRecord{}, fmt.Errorf("decode media id=%d: %w", p.ID, err)
	}
	embedding, err := decodeVector(p.Embedding)
	if err != nil {
		return news.ProcessedRecord{}, fmt.Errorf("decode embedding id=%d: %w", p.ID, err)
	}

	record := news.ProcessedRecord{
		Item: news.Item{
			ID:          news.ID(p.ID),
			Title:       p.Title,
			URL:         p.URL,
			PublishedAt: p.PublishedAt,
			Text:        p.Body,
			Media:       media,
			Language:    p.Language,
			Topic:       p.Topic,
		},
		Suggested:   p.Suggested,
		Disposition: p.Disposition,
		Embedding:   embedding,
		Similarity:  p.Similarity,
		ProcessedAt: p.ProcessedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.DuplicateOf != nil {
		duplicateOf := news.ID(*p.DuplicateOf)
		record.DuplicateOf = &duplicateOf
	}
	return record, nil
}

func sentItemFromRecord(record news.SentRecord) (SentItem, error) {
	album := record.AlbumMessageIDs
	if album == nil {
		album = []int{}
	}
	encoded, err := encodeJSON(album)
	if err != nil {
		return SentItem{}, fmt.Errorf("encode album ids id=%d: %w", record.ID, err)
	}
	return SentItem{
		ID:               int64(record.ID),
		ChatID:           record.ChatID,
		PrimaryMessageID: record.PrimaryMessageID,
		AlbumMessageIDs:  encoded,
		MetaMessageID:    record.MetaMessageID,
		Confirmed:        record.Confirmed,
		Rejected:         record.Rejected,
		SentAt:           record.SentAt,
		UpdatedAt:        record.UpdatedAt,
		FinalizedAt:      record.FinalizedAt,
	}, nil
}

func (s SentItem) toRecord() (news.SentRecord, error) {
	album, err := decodeInts(s.AlbumMessageIDs)
	if err != nil {
		return news.SentRecord{}, fmt.Errorf("decode album ids id=%d: %w", s.ID, err)
	}
	return news.SentRecord{
		ID:               news.ID(s.ID),
		ChatID:           s.ChatID,
		PrimaryMessageID: s.PrimaryMessageID,
		AlbumMessageIDs:  album,
		MetaMessageID:    s.MetaMessageID,
		Confirmed:        s.Confirmed,
		Rejected:         s.Rejected,
		SentAt:           s.SentAt,
		UpdatedAt:        s.UpdatedAt,
		FinalizedAt:      s.FinalizedAt,
	}, nil
}
