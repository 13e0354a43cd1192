package generation

// Status is the lifecycle state of a provider-side generation task.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transitions occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// TaskType identifies the kind of asynchronous job a task handle refers to.
// A task id is opaque and only meaningful together with its originating
// provider and task type.
type TaskType string

const (
	TaskTypeTextToVideo  TaskType = "text-to-video"
	TaskTypeImageToVideo TaskType = "image-to-video"
	TaskTypeVideoExtend  TaskType = "video-extend"
	TaskTypeFrameBridge  TaskType = "frame-bridge"
	TaskTypeTextTo3D     TaskType = "text-to-3d"
	TaskTypeImageTo3D    TaskType = "image-to-3d"
	TaskTypeRig          TaskType = "rig"
	TaskTypeAnimate      TaskType = "animate"
	TaskTypeRetexture    TaskType = "retexture"
)

// String returns the string representation of the task type.
func (t TaskType) String() string {
	return string(t)
}

// Modality returns the modality the task type produces output for.
func (t TaskType) Modality() Modality {
	switch t {
	case TaskTypeTextToVideo, TaskTypeImageToVideo, TaskTypeVideoExtend, TaskTypeFrameBridge:
		return ModalityVideo
	default:
		return ModalityModel3D
	}
}

// FilePrefix returns the materialized filename prefix for artifacts this
// task type produces.
func (t TaskType) FilePrefix() string {
	return string(t)
}

// Task is a handle to a long-running provider-side generation job.
// It transitions exclusively through polling and becomes immutable once it
// reaches a terminal state.
type Task struct {
	ID       string   `json:"task_id"`
	Provider string   `json:"provider"`
	Type     TaskType `json:"task_type"`
	Status   Status   `json:"status"`
	Progress int      `json:"progress"` // 0-100, best effort
	Error    string   `json:"error,omitempty"`
	// Artifacts are the remote references reported by the provider once
	// the task succeeds.
	Artifacts []RemoteArtifact `json:"-"`
}

// Terminal reports whether the task has reached a terminal state.
func (t *Task) Terminal() bool {
	return t.Status.Terminal()
}

// ClampProgress bounds progress into 0-100.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
