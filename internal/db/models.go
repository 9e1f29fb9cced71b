package db

import (
	"time"
)

// Document maps signal.documents. A catalog row is identified by
// (package_id, granule_id); granule_id stores the empty string when the
// source record has no granule so the composite unique index holds.
type Document struct {
	DocumentID   int64      `gorm:"column:document_id;primaryKey;autoIncrement"`
	DocumentUUID string     `gorm:"column:document_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	PackageID    string     `gorm:"column:package_id;type:text;not null;default:'';uniqueIndex:ux_documents_identity"`
	GranuleID    string     `gorm:"column:granule_id;type:text;not null;default:'';uniqueIndex:ux_documents_identity"`
	Title        string     `gorm:"column:title;type:text;not null;default:''"`
	DocClass     string     `gorm:"column:doc_class;type:text;not null;default:''"`
	PublishDate  time.Time  `gorm:"column:publish_date;type:date;not null"`
	MetadataLine string     `gorm:"column:metadata_line;type:text;not null;default:''"`
	Teaser       string     `gorm:"column:teaser;type:text;not null;default:''"`
	PDFURL       *string    `gorm:"column:pdf_url;type:text"`
	HTMLURL      *string    `gorm:"column:html_url;type:text"`
	DetailsURL   *string    `gorm:"column:details_url;type:text"`
	IngestedAt   time.Time  `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
	DeletedAt    *time.Time `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Document) TableName() string { return "signal.documents" }

// Subscription maps signal.subscriptions (standard tier).
type Subscription struct {
	SubscriptionID     int64      `gorm:"column:subscription_id;primaryKey;autoIncrement"`
	SubscriptionUUID   string     `gorm:"column:subscription_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Email              string     `gorm:"column:email;type:text;not null;unique"`
	Sectors            string     `gorm:"column:sectors;type:text;not null;default:''"`
	RelevanceThreshold string     `gorm:"column:relevance_threshold;type:text;not null;default:medium"`
	Keywords           string     `gorm:"column:keywords;type:text;not null;default:''"`
	IsVerified         bool       `gorm:"column:is_verified;type:boolean;not null;default:false"`
	UnsubscribedAt     *time.Time `gorm:"column:unsubscribed_at;type:timestamptz"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Subscription) TableName() string { return "signal.subscriptions" }

// ProSubscription maps signal.pro_subscriptions.
type ProSubscription struct {
	ProSubscriptionID   int64      `gorm:"column:pro_subscription_id;primaryKey;autoIncrement"`
	ProSubscriptionUUID string     `gorm:"column:pro_subscription_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Email               string     `gorm:"column:email;type:text;not null;unique"`
	CompanyType         string     `gorm:"column:company_type;type:text;not null;default:''"`
	Keywords            string     `gorm:"column:keywords;type:text;not null;default:''"`
	IsVerified          bool       `gorm:"column:is_verified;type:boolean;not null;default:false"`
	UnsubscribedAt      *time.Time `gorm:"column:unsubscribed_at;type:timestamptz"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ProSubscription) TableName() string { return "signal.pro_subscriptions" }

// Extraction maps signal.extractions. Zero or one row per document.
type Extraction struct {
	ExtractionID      int64      `gorm:"column:extraction_id;primaryKey;autoIncrement"`
	ExtractionUUID    string     `gorm:"column:extraction_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	DocumentID        int64      `gorm:"column:document_id;type:bigint;not null;unique"`
	Title             string     `gorm:"column:title;type:text;not null;default:''"`
	Companies         string     `gorm:"column:companies;type:text;not null;default:''"`
	Sectors           string     `gorm:"column:sectors;type:text;not null;default:''"`
	Relevance         string     `gorm:"column:relevance;type:text;not null;default:''"`
	Summary           string     `gorm:"column:summary;type:text;not null;default:''"`
	EmbeddingSyncedAt *time.Time `gorm:"column:embedding_synced_at;type:timestamptz"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Extraction) TableName() string { return "signal.extractions" }

// DeliveryCandidate maps signal.delivery_candidates. One row per
// (pro_subscription_id, document_id, period_date); summary and sent_at
// encode the delivery lifecycle.
type DeliveryCandidate struct {
	CandidateID       int64      `gorm:"column:candidate_id;primaryKey;autoIncrement"`
	CandidateUUID     string     `gorm:"column:candidate_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ProSubscriptionID int64      `gorm:"column:pro_subscription_id;type:bigint;not null;uniqueIndex:ux_delivery_candidates_triple"`
	DocumentID        int64      `gorm:"column:document_id;type:bigint;not null;uniqueIndex:ux_delivery_candidates_triple"`
	PeriodDate        time.Time  `gorm:"column:period_date;type:date;not null;uniqueIndex:ux_delivery_candidates_triple"`
	Summary           *string    `gorm:"column:summary;type:text"`
	SentAt            *time.Time `gorm:"column:sent_at;type:timestamptz"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DeliveryCandidate) TableName() string { return "signal.delivery_candidates" }

// IngestRun maps signal.ingest_runs.
type IngestRun struct {
	RunID             int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	IngestRunUUID     string     `gorm:"column:ingest_run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	WindowStart       time.Time  `gorm:"column:window_start;type:date;not null"`
	WindowEnd         time.Time  `gorm:"column:window_end;type:date;not null"`
	StartedAt         time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt        *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status            string     `gorm:"column:status;type:signal.ingest_run_status;not null;default:running"`
	PagesFetched      int        `gorm:"column:pages_fetched;type:integer;not null;default:0"`
	DocumentsSeen     int        `gorm:"column:documents_seen;type:integer;not null;default:0"`
	DocumentsInserted int        `gorm:"column:documents_inserted;type:integer;not null;default:0"`
	DocumentsUpdated  int        `gorm:"column:documents_updated;type:integer;not null;default:0"`
	ErrorMessage      *string    `gorm:"column:error_message;type:text"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (IngestRun) TableName() string { return "signal.ingest_runs" }

func autoMigrateModels() []any {
	return []any{
		&Document{},
		&Subscription{},
		&ProSubscription{},
		&Extraction{},
		&DeliveryCandidate{},
		&IngestRun{},
	}
}
