package models

import (
	"time"
)

// TaskStatus mirrors the queue backend's task states. PENDING doubles as the
// "unknown" state: the backend reports ids it has never seen (or whose result
// records have expired) as pending rather than erroring.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusStarted TaskStatus = "STARTED"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
	TaskStatusRetry   TaskStatus = "RETRY"
	TaskStatusRevoked TaskStatus = "REVOKED"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure || s == TaskStatusRevoked
}

// TaskKind selects which unit of work a task carries.
type TaskKind string

const (
	TaskKindStory TaskKind = "generate_story" // result: generated story text
	TaskKindVideo TaskKind = "generate_video" // result: final video path
)

// TaskInfo is the poller-facing view of a task: current status plus the
// result payload when (and only when) the task succeeded.
type TaskInfo struct {
	ID          string     `json:"id"`
	Kind        TaskKind   `json:"kind,omitempty"`
	Status      TaskStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// DTOs for API requests/responses

type TextRequest struct {
	// Text is the moral the story should illustrate.
	Text string `json:"text"`
	// SearchTerms optionally pre-supplies image search terms; when present
	// the pipeline skips term generation.
	SearchTerms []string `json:"search_terms,omitempty"`
}

type StoryResponse struct {
	Moral string `json:"moral"`
	Story string `json:"story"`
}

type SubmitTaskResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

type ListTasksResponse struct {
	Tasks []TaskInfo `json:"tasks"`
	Total int        `json:"total"`
}

// VideoAspect is the output orientation of the final video.
type VideoAspect string

const (
	AspectLandscape VideoAspect = "16:9"
	AspectPortrait  VideoAspect = "9:16"
	AspectSquare    VideoAspect = "1:1"
)

// ToResolution returns the pixel dimensions for the aspect.
func (a VideoAspect) ToResolution() (int, int) {
	switch a {
	case AspectLandscape:
		return 1920, 1080
	case AspectSquare:
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// VideoParams controls the final composition step (subtitle burn-in styling
// and output geometry).
type VideoParams struct {
	Aspect           VideoAspect `json:"aspect"`
	SubtitleEnabled  bool        `json:"subtitle_enabled"`
	SubtitlePosition int         `json:"subtitle_position"` // percent from top, 0-100
	FontSize         int         `json:"font_size"`
	FontColor        string      `json:"font_color"`   // &HBBGGRR hex for ASS force_style
	StrokeColor      string      `json:"stroke_color"` // &HBBGGRR
	StrokeWidth      float64     `json:"stroke_width"`
}

// DefaultVideoParams returns the portrait defaults used for every generated
// video unless config overrides them.
func DefaultVideoParams() VideoParams {
	return VideoParams{
		Aspect:           AspectPortrait,
		SubtitleEnabled:  true,
		SubtitlePosition: 70,
		FontSize:         60,
		FontColor:        "&H00FFFFFF",
		StrokeColor:      "&H00000000",
		StrokeWidth:      4,
	}
}
