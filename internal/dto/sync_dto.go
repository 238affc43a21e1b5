package dto

// Sync result actions.
const (
	SyncActionCreated = "created"
	SyncActionUpdated = "updated"
	SyncActionInSync  = "already_in_sync"
)

// Desync issue categories.
const (
	DesyncLevelMismatch   = "level_mismatch"
	DesyncMissingLicense  = "missing_license"
	DesyncMissingProgress = "missing_progress"
)

// Sync directions accepted by AutoSyncAll.
const (
	SyncDirectionProgressToLicense = "progress_to_license"
	SyncDirectionLicenseToProgress = "license_to_progress"
)

// SyncResult reports the effect of one directional sync invocation.
type SyncResult struct {
	Action         string `json:"action"`
	UserID         uint   `json:"user_id"`
	Specialization string `json:"specialization"`
	PreviousLevel  int    `json:"previous_level"`
	NewLevel       int    `json:"new_level"`
}

// DesyncIssue describes one detected divergence between a progress record and
// its license, with the direction the scanner recommends.
type DesyncIssue struct {
	UserID               uint   `json:"user_id"`
	Specialization       string `json:"specialization"`
	Type                 string `json:"type"`
	ProgressLevel        *int   `json:"progress_level,omitempty"`
	LicenseLevel         *int   `json:"license_level,omitempty"`
	RecommendedDirection string `json:"recommended_direction"`
}

// AutoSyncRequest triggers a batch reconciliation pass.
type AutoSyncRequest struct {
	Direction      string `json:"direction" validate:"required,oneof=progress_to_license license_to_progress"`
	Specialization string `json:"specialization"`
	DryRun         bool   `json:"dry_run"`
	SyncedBy       *uint  `json:"synced_by"`
}

// SyncFailure records one user's sync error without aborting the batch.
type SyncFailure struct {
	UserID         uint   `json:"user_id"`
	Specialization string `json:"specialization"`
	Error          string `json:"error"`
}

// AutoSyncReport summarizes a batch reconciliation pass.
type AutoSyncReport struct {
	Direction string        `json:"direction"`
	DryRun    bool          `json:"dry_run"`
	Issues    []DesyncIssue `json:"issues"`
	Synced    []SyncResult  `json:"synced"`
	Failures  []SyncFailure `json:"failures"`
}
