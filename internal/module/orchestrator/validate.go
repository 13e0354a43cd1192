package orchestrator

import (
	"strings"

	"github.com/mediaforge/server/internal/domain/generation"
)

// validateRequest checks caller input before any resolution or network
// call. It returns an empty string when the request is acceptable, or a
// caller-facing message.
func validateRequest(modality generation.Modality, op generation.Operation, req *generation.Request) string {
	if req.N < 0 {
		return "n must be non-negative"
	}
	if req.Duration < 0 {
		return "duration must be non-negative"
	}

	switch op {
	case generation.OpGenerate:
		if blank(req.Prompt) {
			return "Prompt cannot be empty for generation"
		}
	case generation.OpEdit:
		if blank(req.Prompt) {
			return "Prompt cannot be empty for image editing"
		}
		if blank(req.Image) {
			return "image is required for editing"
		}
	case generation.OpGenerateWithReference:
		if blank(req.Prompt) {
			return "Prompt cannot be empty for reference-guided generation"
		}
		if len(req.References) == 0 {
			return "at least one reference input is required"
		}
	case generation.OpImageTo:
		if blank(req.Image) {
			return "image is required for image-to-" + string(modality) + " conversion"
		}
	case generation.OpExtend:
		if blank(req.Video) {
			return "video is required for extension"
		}
	case generation.OpBridgeFrames:
		if blank(req.FirstFrame) || blank(req.LastFrame) {
			return "first_frame and last_frame are both required for frame bridging"
		}
	case generation.OpRig:
		if req.Input == nil {
			return "input is required for rigging; supply {kind:\"task\",id} or {kind:\"file\",path}"
		}
		if msg := req.Input.Validate(); msg != "" {
			return msg
		}
	case generation.OpAnimate:
		if blank(req.RigTaskID) {
			return "rig_task_id is required for animation"
		}
		if blank(req.ActionID) {
			return "action_id is required for animation"
		}
	case generation.OpRetexture:
		if req.Input == nil {
			return "input is required for retexturing; supply {kind:\"task\",id} or {kind:\"file\",path}"
		}
		if msg := req.Input.Validate(); msg != "" {
			return msg
		}
		if blank(req.Prompt) {
			return "Prompt describing the desired texture cannot be empty"
		}
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
