package generation

import "strings"

// Credentials is an opaque key/value bag scoped to one provider, supplied
// per call and never persisted by this layer.
type Credentials map[string]string

// APIKey returns the primary API key.
func (c Credentials) APIKey() string {
	return c["api_key"]
}

// Empty reports whether no credential material is present.
func (c Credentials) Empty() bool {
	for _, v := range c {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// InputKind discriminates the source of a 3D model input.
type InputKind string

const (
	// InputKindTask references the output of a previous generation task.
	InputKindTask InputKind = "task"
	// InputKindFile references a previously materialized local file.
	InputKindFile InputKind = "file"
)

// ModelInput is an explicit discriminated model source, replacing any
// guessing between task handles and file paths.
type ModelInput struct {
	Kind InputKind `json:"kind"`
	// ID is the originating task id when Kind is InputKindTask.
	ID string `json:"id,omitempty"`
	// Path is the local file path when Kind is InputKindFile.
	Path string `json:"path,omitempty"`
}

// Validate checks the discriminant matches the populated field.
func (i *ModelInput) Validate() string {
	switch i.Kind {
	case InputKindTask:
		if i.ID == "" {
			return "input of kind \"task\" requires a non-empty id"
		}
	case InputKindFile:
		if i.Path == "" {
			return "input of kind \"file\" requires a non-empty path"
		}
	default:
		return "input kind must be \"task\" or \"file\""
	}
	return ""
}

// Request is the modality-specific parameter bag for one generation call.
// Optional Provider/Model/APIKey fields are explicit overrides taking
// precedence over configuration. Never mutated after construction.
type Request struct {
	Prompt      string `json:"prompt,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	N           int    `json:"n,omitempty"`
	Size        string `json:"size,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Duration    int    `json:"duration,omitempty"` // seconds
	Seed        *int64 `json:"seed,omitempty"`
	Style       string `json:"style,omitempty"`
	SafetyMode  string `json:"safety_mode,omitempty"`

	// Image is the source image for edits and image-to-X conversions,
	// a URL or base64 payload.
	Image string `json:"image,omitempty"`
	// References are style/subject reference inputs for reference-guided
	// generation.
	References []string `json:"references,omitempty"`
	// Video is the source video for extension.
	Video string `json:"video,omitempty"`
	// FirstFrame and LastFrame bound a frame-bridge generation.
	FirstFrame string `json:"first_frame,omitempty"`
	LastFrame  string `json:"last_frame,omitempty"`

	// Input is the discriminated model source for 3D operations
	// (rig, retexture).
	Input *ModelInput `json:"input,omitempty"`
	// RigTaskID names the rig a 3D animation is applied to.
	RigTaskID string `json:"rig_task_id,omitempty"`
	// ActionID selects the animation action, e.g. "walk_forward".
	ActionID string `json:"action_id,omitempty"`

	// WaitForCompletion selects wait mode for asynchronous operations.
	// When false the call returns immediately with a pending task handle.
	WaitForCompletion bool `json:"wait_for_completion,omitempty"`
	// SkipDownload opts out of artifact materialization.
	SkipDownload bool `json:"skip_download,omitempty"`
}

// TaskQuery identifies one asynchronous task for a status check.
type TaskQuery struct {
	TaskID   string   `json:"task_id"`
	TaskType TaskType `json:"task_type"`
	Provider string   `json:"provider,omitempty"`
	APIKey   string   `json:"api_key,omitempty"`
	// SkipDownload opts out of materialization when the task has
	// succeeded.
	SkipDownload bool `json:"skip_download,omitempty"`
}
