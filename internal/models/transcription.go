package models

import "time"

type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformReddit   Platform = "reddit"
)

func AllPlatforms() []Platform {
	return []Platform{PlatformLinkedIn, PlatformTwitter, PlatformReddit}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedIn, PlatformTwitter, PlatformReddit:
		return true
	}
	return false
}

type Status string

const (
	StatusRaw        Status = "raw" // written by ingestion, acts as pending
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusOptimized  Status = "optimized"
	StatusFailed     Status = "failed"
	StatusEdited     Status = "edited"
)

// StructuredPost is the strict JSON shape returned by the rewrite provider
// in structured mode.
type StructuredPost struct {
	OptimizedContent string   `json:"optimizedContent" bson:"optimizedContent"`
	Hashtags         []string `json:"hashtags" bson:"hashtags"`
	Tone             string   `json:"tone" bson:"tone"`
	TargetAudience   string   `json:"targetAudience" bson:"targetAudience"`
}

type Transcription struct {
	ID            string                      `json:"_id"`
	Text          string                      `json:"text"`
	Optimizations map[Platform]string         `json:"optimizations,omitempty"`
	Details       map[Platform]StructuredPost `json:"details,omitempty"`
	OptimizedText string                      `json:"optimizedText,omitempty"`
	Status        Status                      `json:"status"`
	UserID        string                      `json:"userId,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
	EditedAt      *time.Time                  `json:"editedAt,omitempty"`
}

// TranscriptionEdit is a manual overwrite of generated text.
type TranscriptionEdit struct {
	ID            string
	UserID        string // optional ownership scope
	OptimizedText string
	Optimizations map[Platform]string
	EditedAt      time.Time
}

// OptimizationUpdate is the single write that closes an optimization run.
type OptimizationUpdate struct {
	ID            string
	Optimizations map[Platform]string
	Details       map[Platform]StructuredPost
	OptimizedText string // legacy single-text field, left untouched when empty
	UpdatedAt     time.Time
}
