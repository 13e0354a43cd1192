package orchestrator

import (
	"context"
	"time"

	"github.com/mediaforge/server/internal/domain/generation"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
	"github.com/mediaforge/server/internal/shared/logger"
	"github.com/mediaforge/server/internal/utils/metrics"
)

// Service exposes the tool call surface: one method per operation, each
// taking a plain parameter object and returning a plain result object.
// Expected failures are returned as {success:false, error}; nothing here
// panics or surfaces Go errors for them.
type Service struct {
	registry     *Registry
	resolver     *Resolver
	engine       *Engine
	materializer *Materializer
	log          *logger.Logger
	metrics      *metrics.Metrics
	policy       WaitPolicy
}

// ServiceConfig holds service dependencies.
type ServiceConfig struct {
	Registry     *Registry
	Resolver     *Resolver
	Engine       *Engine
	Materializer *Materializer
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
	WaitPolicy   WaitPolicy
}

// NewService creates the orchestration service.
func NewService(cfg *ServiceConfig) *Service {
	policy := cfg.WaitPolicy
	if policy.Interval <= 0 {
		policy = DefaultWaitPolicy()
	}
	return &Service{
		registry:     cfg.Registry,
		resolver:     cfg.Resolver,
		engine:       cfg.Engine,
		materializer: cfg.Materializer,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		policy:       policy,
	}
}

// Registry returns the capability registry backing this service.
func (s *Service) Registry() *Registry { return s.registry }

// Generate runs the primary generation operation for a modality.
func (s *Service) Generate(ctx context.Context, modality generation.Modality, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, modality, generation.OpGenerate, req)
}

// Edit applies an instruction-guided edit to an image.
func (s *Service) Edit(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityImage, generation.OpEdit, req)
}

// GenerateWithReference generates an image guided by reference inputs.
func (s *Service) GenerateWithReference(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityImage, generation.OpGenerateWithReference, req)
}

// ImageToVideo animates a source image into a video.
func (s *Service) ImageToVideo(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityVideo, generation.OpImageTo, req)
}

// ImageToModel converts a source image into a 3D model.
func (s *Service) ImageToModel(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityModel3D, generation.OpImageTo, req)
}

// ExtendVideo extends an existing video.
func (s *Service) ExtendVideo(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityVideo, generation.OpExtend, req)
}

// BridgeFrames generates video between a first and last frame.
func (s *Service) BridgeFrames(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityVideo, generation.OpBridgeFrames, req)
}

// Rig rigs a 3D model for animation.
func (s *Service) Rig(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityModel3D, generation.OpRig, req)
}

// Animate applies an animation action to a previously rigged model.
func (s *Service) Animate(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityModel3D, generation.OpAnimate, req)
}

// Retexture regenerates the textures of a 3D model from a prompt.
func (s *Service) Retexture(ctx context.Context, req *generation.Request) *generation.ToolResult {
	return s.run(ctx, generation.ModalityModel3D, generation.OpRetexture, req)
}

// GetTask performs exactly one status poll for an asynchronous task. On
// success it materializes artifacts unless the caller opted out.
func (s *Service) GetTask(ctx context.Context, q *generation.TaskQuery) *generation.ToolResult {
	if q == nil || q.TaskID == "" {
		return fail(apperrors.Validation("task_id is required"), generation.ModalityModel3D)
	}
	if q.TaskType == "" {
		return fail(apperrors.Validation("task_type is required; it must match the type used at submission"), generation.ModalityModel3D)
	}
	modality := q.TaskType.Modality()

	adapter, creds, appErr := s.resolver.ResolveForTask(q)
	if appErr != nil {
		return fail(appErr, modality)
	}
	providerID := adapter.Descriptor().ID

	task, pollErr := s.engine.Poll(ctx, adapter.(Poller), providerID, q.TaskID, q.TaskType, creds)
	if pollErr != nil {
		return fail(pollErr, modality)
	}

	switch {
	case task.Status == generation.StatusSucceeded:
		return s.succeedTask(ctx, modality, task, task.Type.FilePrefix(), providerID, "", creds, q.SkipDownload)
	case task.Terminal():
		return failedTaskResult(task, providerID)
	default:
		return generation.ToToolResult(generation.Pending{
			Provider: providerID,
			TaskID:   task.ID,
			TaskType: task.Type,
			Status:   task.Status,
			Progress: task.Progress,
		}, modality)
	}
}

func (s *Service) run(ctx context.Context, modality generation.Modality, op generation.Operation, req *generation.Request) *generation.ToolResult {
	if req == nil {
		req = &generation.Request{}
	}
	if msg := validateRequest(modality, op, req); msg != "" {
		return fail(apperrors.Validation("%s", msg), modality)
	}

	res, appErr := s.resolver.Resolve(modality, op, req)
	if appErr != nil {
		return fail(appErr, modality)
	}
	providerID := res.Descriptor.ID

	if c := res.Model.Constraints; c != nil {
		if !c.AllowsDuration(req.Duration) {
			return fail(apperrors.Validation(
				"duration %ds is outside the range supported by model %q (%d-%ds)",
				req.Duration, res.Model.ID, c.MinDurationSec, c.MaxDurationSec,
			), modality)
		}
		if !c.AllowsAspectRatio(req.AspectRatio) {
			return fail(apperrors.Validation(
				"aspect ratio %q is not supported by model %q",
				req.AspectRatio, res.Model.ID,
			), modality)
		}
	}

	start := time.Now()
	observe := func(status string) {
		if s.metrics != nil {
			s.metrics.GenerationsTotal.WithLabelValues(providerID, res.Model.ID, string(op), status).Inc()
			s.metrics.GenerationDuration.WithLabelValues(providerID, string(op)).Observe(time.Since(start).Seconds())
		}
	}

	sub, err := res.Invoke(ctx, req)
	if err != nil {
		observe("error")
		return fail(asAppError(providerID, err), modality)
	}

	if sub.Task != nil {
		sub.Task.Provider = providerID
		return s.finishAsync(ctx, modality, op, req, res, sub, observe)
	}
	return s.finishSync(ctx, modality, op, req, res, sub, observe)
}

func (s *Service) finishSync(ctx context.Context, modality generation.Modality, op generation.Operation, req *generation.Request, res *Resolution, sub *Submission, observe func(string)) *generation.ToolResult {
	providerID := res.Descriptor.ID
	if len(sub.Artifacts) == 0 {
		observe("error")
		msg := "provider returned no artifacts"
		if sub.Warning != "" {
			msg = sub.Warning
		}
		return fail(&apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  msg,
		}, modality)
	}

	if req.SkipDownload {
		arts, dErr := s.skipDownloadArtifacts(ctx, modality, prefixFor(op, modality, req), providerID, sub.Artifacts, res.Creds)
		if dErr != nil {
			observe("download_error")
			return downgraded(dErr, providerID, res.Model.ID, "", "")
		}
		observe("ok")
		return generation.ToToolResult(generation.Success{
			Provider:  providerID,
			Model:     res.Model.ID,
			Artifacts: arts,
			Warning:   sub.Warning,
		}, modality)
	}

	arts, dErr := s.materializer.Materialize(ctx, modality, prefixFor(op, modality, req), providerID, sub.Artifacts, res.Creds)
	if dErr != nil {
		observe("download_error")
		return downgraded(dErr, providerID, res.Model.ID, "", "")
	}

	observe("ok")
	return generation.ToToolResult(generation.Success{
		Provider:  providerID,
		Model:     res.Model.ID,
		Artifacts: arts,
		Warning:   sub.Warning,
	}, modality)
}

func (s *Service) finishAsync(ctx context.Context, modality generation.Modality, op generation.Operation, req *generation.Request, res *Resolution, sub *Submission, observe func(string)) *generation.ToolResult {
	providerID := res.Descriptor.ID
	task := sub.Task

	poller, ok := res.Adapter.(Poller)
	if !ok {
		observe("error")
		return fail(&apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  "provider accepted an asynchronous task but exposes no status check",
		}, modality)
	}

	if !req.WaitForCompletion {
		observe("accepted")
		s.log.Info("task submitted",
			"provider", providerID,
			"task_id", task.ID,
			"task_type", task.Type,
		)
		return generation.ToToolResult(generation.Pending{
			Provider: providerID,
			TaskID:   task.ID,
			TaskType: task.Type,
			Status:   generation.StatusPending,
			Progress: 0,
		}, modality)
	}

	final, timedOut, waitErr := s.engine.Await(ctx, poller, task, res.Creds, s.policy)
	if waitErr != nil {
		observe("error")
		return fail(waitErr, modality)
	}
	if timedOut {
		observe("timeout")
		return generation.ToToolResult(generation.Pending{
			Provider: providerID,
			TaskID:   task.ID,
			TaskType: task.Type,
			Status:   final.Status,
			Progress: final.Progress,
			TimedOut: true,
		}, modality)
	}

	switch final.Status {
	case generation.StatusSucceeded:
		result := s.succeedTask(ctx, modality, final, prefixFor(op, modality, req), providerID, res.Model.ID, res.Creds, req.SkipDownload)
		if result.Success {
			observe("ok")
		} else {
			observe("download_error")
		}
		return result
	default:
		observe("failed")
		return failedTaskResult(final, providerID)
	}
}

// succeedTask materializes a completed task's artifacts and builds the
// success result. A download failure downgrades the outcome to a failure
// that keeps the task identity.
func (s *Service) succeedTask(ctx context.Context, modality generation.Modality, task *generation.Task, prefix, providerID, modelID string, creds generation.Credentials, skipDownload bool) *generation.ToolResult {
	if len(task.Artifacts) == 0 {
		return downgraded(&apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  "task succeeded but the provider reported no artifacts",
		}, providerID, modelID, task.ID, string(task.Type))
	}

	if skipDownload {
		arts, dErr := s.skipDownloadArtifacts(ctx, modality, prefix, providerID, task.Artifacts, creds)
		if dErr != nil {
			return downgraded(dErr, providerID, modelID, task.ID, string(task.Type))
		}
		return generation.ToToolResult(generation.Success{
			Provider:  providerID,
			Model:     modelID,
			TaskID:    task.ID,
			TaskType:  task.Type,
			Artifacts: arts,
		}, modality)
	}

	arts, dErr := s.materializer.Materialize(ctx, modality, prefix, providerID, task.Artifacts, creds)
	if dErr != nil {
		return downgraded(dErr, providerID, modelID, task.ID, string(task.Type))
	}
	return generation.ToToolResult(generation.Success{
		Provider:  providerID,
		Model:     modelID,
		TaskID:    task.ID,
		TaskType:  task.Type,
		Artifacts: arts,
	}, modality)
}

// prefixFor names materialized files after the originating operation.
// Animations derive their prefix from the rig task so related assets sort
// together.
func prefixFor(op generation.Operation, modality generation.Modality, req *generation.Request) string {
	if op == generation.OpAnimate && req.RigTaskID != "" {
		return sanitizePrefix(req.RigTaskID) + "-animation"
	}
	if cap, ok := op.RequiredCapability(modality); ok {
		return string(cap)
	}
	return string(op)
}

// failedTaskResult builds the result for a task that reached FAILED or
// CANCELED: success=false with a non-empty error and the terminal status.
func failedTaskResult(task *generation.Task, providerID string) *generation.ToolResult {
	msg := task.Error
	if msg == "" {
		msg = "generation task " + string(task.Status)
	}
	return &generation.ToolResult{
		Success:  false,
		Error:    msg,
		Provider: providerID,
		TaskID:   task.ID,
		TaskType: string(task.Type),
		Status:   string(task.Status),
		Progress: task.Progress,
	}
}

// downgraded builds the result for a generation that succeeded remotely
// but failed to materialize: the failure keeps the known task identity so
// the caller can retry the download.
func downgraded(err *apperrors.Error, providerID, modelID, taskID, taskType string) *generation.ToolResult {
	return &generation.ToolResult{
		Success:  false,
		Error:    err.Error(),
		Provider: providerID,
		Model:    modelID,
		TaskID:   taskID,
		TaskType: taskType,
	}
}

// skipDownloadArtifacts honors skip_download by handing remote artifacts
// back as URL-only references. Inline payloads have no remote URL to hand
// back, so those are persisted to the local store regardless.
func (s *Service) skipDownloadArtifacts(ctx context.Context, modality generation.Modality, prefix, providerID string, remotes []generation.RemoteArtifact, creds generation.Credentials) ([]generation.Artifact, *apperrors.Error) {
	arts := make([]generation.Artifact, 0, len(remotes))
	var inline []generation.RemoteArtifact
	for _, rem := range remotes {
		if len(rem.Data) > 0 {
			inline = append(inline, rem)
			continue
		}
		arts = append(arts, generation.Artifact{RemoteURL: rem.URL, MIME: rem.MIME, AccessURL: rem.URL})
	}
	if len(inline) > 0 {
		persisted, err := s.materializer.Materialize(ctx, modality, prefix, providerID, inline, creds)
		if err != nil {
			return nil, err
		}
		arts = append(arts, persisted...)
	}
	return arts, nil
}

func fail(err *apperrors.Error, modality generation.Modality) *generation.ToolResult {
	return generation.ToToolResult(generation.Fail(err), modality)
}
