package generation

import (
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

// Result is the outcome of one tool invocation. It is a closed union:
// Success, Pending or Failure. A "not yet complete" task is Pending,
// never a Success and never a populated Failure.
type Result interface {
	isResult()
}

// Success carries one or more artifacts from a completed generation.
type Success struct {
	Provider  string
	Model     string
	TaskID    string
	TaskType  TaskType
	Artifacts []Artifact
	// Warning carries non-fatal provider notes, e.g. a partial refusal
	// next to produced images.
	Warning string
}

// Pending carries the handle of a task that has not reached a terminal
// state. TimedOut marks a wait-mode call that exceeded its maximum wait;
// the task id remains valid for a later status check.
type Pending struct {
	Provider string
	TaskID   string
	TaskType TaskType
	Status   Status
	Progress int
	TimedOut bool
}

// Failure carries a normalized error.
type Failure struct {
	Provider string
	Err      *apperrors.Error
}

func (Success) isResult() {}
func (Pending) isResult() {}
func (Failure) isResult() {}

// Fail wraps a normalized error into a Failure result.
func Fail(err *apperrors.Error) Failure {
	return Failure{Provider: err.Provider, Err: err}
}

// ToolResult is the plain result object returned on the tool call surface.
// Expected failure modes are returned as data, never as errors.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	TaskID   string `json:"task_id,omitempty"`
	TaskType string `json:"task_type,omitempty"`
	Status   string `json:"status,omitempty"`
	Progress int    `json:"progress"`
	TimedOut bool   `json:"timed_out,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Warning  string `json:"warning,omitempty"`

	// Primary artifact convenience fields.
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	ModelURL string `json:"model_url,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`

	// Artifacts lists every produced artifact when the request asked for
	// multiple outputs.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// ToToolResult flattens a Result into the plain tool surface shape.
func ToToolResult(r Result, modality Modality) *ToolResult {
	switch v := r.(type) {
	case Success:
		out := &ToolResult{
			Success:  true,
			Provider: v.Provider,
			Model:    v.Model,
			TaskID:   v.TaskID,
			TaskType: string(v.TaskType),
			Status:   string(StatusSucceeded),
			Progress: 100,
			Warning:  v.Warning,
		}
		if len(v.Artifacts) > 0 {
			primary := v.Artifacts[0]
			out.FilePath = primary.FilePath
			out.Filename = primary.Filename
			out.MIMEType = primary.MIME
			switch modality {
			case ModalityImage:
				out.ImageURL = primary.AccessURL
			case ModalityVideo:
				out.VideoURL = primary.AccessURL
			case ModalityModel3D:
				out.ModelURL = primary.AccessURL
			}
			if len(v.Artifacts) > 1 {
				out.Artifacts = v.Artifacts[1:]
			}
		}
		return out
	case Pending:
		return &ToolResult{
			Success:  false,
			Provider: v.Provider,
			TaskID:   v.TaskID,
			TaskType: string(v.TaskType),
			Status:   string(v.Status),
			Progress: ClampProgress(v.Progress),
			TimedOut: v.TimedOut,
		}
	case Failure:
		return &ToolResult{
			Success:  false,
			Provider: v.Provider,
			Error:    v.Err.Error(),
		}
	default:
		return &ToolResult{Success: false, Error: "unknown result shape"}
	}
}
