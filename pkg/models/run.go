package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Stage names the part of the pipeline an error came from.
type Stage string

const (
	StageIngestion    Stage = "ingestion"
	StageStaging      Stage = "staging"
	StageIdentity     Stage = "identity"
	StageMergeProduct Stage = "merge_product"
	StageMergeVariant Stage = "merge_variant"
	StageProjection   Stage = "projection"
	StagePublish      Stage = "publish"
)

// RejectedRow is the retained trace of a row that failed validation.
type RejectedRow struct {
	Line           int      `json:"line"`
	ItemID         *string  `json:"item_id,omitempty"`
	ManufacturerID *string  `json:"manufacturer_id,omitempty"`
	ProductID      *string  `json:"product_id,omitempty"`
	UnitPrice      *string  `json:"unit_price,omitempty"`
	InvalidFields  []string `json:"invalid_fields"`
}

// StageError is a recoverable error caught during a run.
type StageError struct {
	Stage   Stage          `json:"stage"`
	Message string         `json:"message"`
	Keys    map[string]any `json:"keys,omitempty"`
}

// IngestionReport summarizes the feed-to-staging pass.
type IngestionReport struct {
	Status               RunStatus     `json:"status"`
	Chunks               int           `json:"chunks"`
	ValidRows            int           `json:"valid_rows"`
	InvalidRows          int           `json:"invalid_rows"`
	RejectedRows         []RejectedRow `json:"rejected_rows"`
	RejectedRowsDropped  int           `json:"rejected_rows_dropped"`
	StagingWrites        int           `json:"staging_writes"`
	StagingWriteFailures int           `json:"staging_write_failures"`
}

// MergeReport summarizes the staging-to-catalog pass.
type MergeReport struct {
	StagingProducts   int `json:"staging_products"`
	NewManufacturers  int `json:"new_manufacturers"`
	NewVendors        int `json:"new_vendors"`
	NewBaseProducts   int `json:"new_base_products"`
	ResolvedProducts  int `json:"resolved_products"`
	SkippedProducts   int `json:"skipped_products"`
	NewProducts       int `json:"new_products"`
	NewVariants       int `json:"new_variants"`
	UpdatedVariants   int `json:"updated_variants"`
	UnchangedVariants int `json:"unchanged_variants"`
	FailedVariants    int `json:"failed_variants"`
}

// RunReport is the complete outcome of one import run.
type RunReport struct {
	Ingestion IngestionReport `json:"ingestion"`
	Merge     MergeReport     `json:"merge"`
	Errors    []StageError    `json:"errors"`
}

// Run is a persisted import run.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	FeedPath   string     `json:"feed_path"`
	Report     RunReport  `json:"report"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
