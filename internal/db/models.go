package db

import (
	"time"

	"gorm.io/datatypes"
)

// RawItem maps newsdesk.raw_items.
type RawItem struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title       string         `gorm:"column:title;type:text;not null"`
	URL         string         `gorm:"column:url;type:text;not null;uniqueIndex:raw_items_url_key"`
	PublishedAt *time.Time     `gorm:"column:published_at;type:timestamptz"`
	Body        string         `gorm:"column:body;type:text;not null;default:''"`
	Media       datatypes.JSON `gorm:"column:media;type:jsonb;not null;default:'[]'"`
	Language    string         `gorm:"column:language;type:text;not null;default:und"`
	Topic       string         `gorm:"column:topic;type:text;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawItem) TableName() string { return "newsdesk.raw_items" }

// ProcessedItem maps newsdesk.processed_items.
type ProcessedItem struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title       string         `gorm:"column:title;type:text;not null"`
	URL         string         `gorm:"column:url;type:text;not null"`
	PublishedAt *time.Time     `gorm:"column:published_at;type:timestamptz"`
	Body        string         `gorm:"column:body;type:text;not null;default:''"`
	Media       datatypes.JSON `gorm:"column:media;type:jsonb;not null;default:'[]'"`
	Language    string         `gorm:"column:language;type:text;not null;default:und"`
	Topic       string         `gorm:"column:topic;type:text;not null"`
	Suggested   bool           `gorm:"column:suggested;type:boolean;not null;default:false"`
	Disposition string         `gorm:"column:disposition;type:text;not null;default:candidate"`
	Embedding   datatypes.JSON `gorm:"column:embedding;type:jsonb"`
	DuplicateOf *int64         `gorm:"column:duplicate_of;type:bigint"`
	Similarity  *float64       `gorm:"column:similarity;type:double precision"`
	ProcessedAt time.Time      `gorm:"column:processed_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ProcessedItem) TableName() string { return "newsdesk.processed_items" }

// SentItem maps newsdesk.sent_items.
type SentItem struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	ChatID           int64          `gorm:"column:chat_id;type:bigint;not null"`
	PrimaryMessageID int            `gorm:"column:primary_message_id;type:integer;not null"`
	AlbumMessageIDs  datatypes.JSON `gorm:"column:album_message_ids;type:jsonb;not null;default:'[]'"`
	MetaMessageID    int            `gorm:"column:meta_message_id;type:integer;not null;default:0"`
	Confirmed        bool           `gorm:"column:confirmed;type:boolean;not null;default:false"`
	Rejected         bool           `gorm:"column:rejected;type:boolean;not null;default:false"`
	SentAt           time.Time      `gorm:"column:sent_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
	FinalizedAt      *time.Time     `gorm:"column:finalized_at;type:timestamptz"`
}

func (SentItem) TableName() string { return "newsdesk.sent_items" }

// PipelineSetting maps newsdesk.pipeline_settings.
type PipelineSetting struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PipelineSetting) TableName() string { return "newsdesk.pipeline_settings" }

func autoMigrateModels() []any {
	return []any{
		&RawItem{},
		&ProcessedItem{},
		&SentItem{},
		&PipelineSetting{},
	}
}
