// Package meshy implements the asynchronous 3D model generation adapter
// for the Meshy API.
package meshy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

const (
	providerID     = "meshy"
	defaultBaseURL = "https://api.meshy.ai"
)

// Adapter translates unified 3D requests into Meshy API calls. Every
// operation is asynchronous and returns a task handle.
type Adapter struct {
	client  *http.Client
	baseURL string
}

// New creates a Meshy 3D adapter.
func New(client *http.Client, baseURL string) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Descriptor returns the provider identity and model catalog.
func (a *Adapter) Descriptor() generation.ProviderDescriptor {
	return generation.ProviderDescriptor{
		ID:       providerID,
		Name:     "Meshy",
		Modality: generation.ModalityModel3D,
		Models: []generation.ModelDescriptor{
			{
				ID:   "meshy-5",
				Name: "Meshy 5",
				Capabilities: []generation.Capability{
					generation.CapabilityTextTo3D,
					generation.CapabilityImageTo3D,
					generation.CapabilityRigging,
					generation.CapabilityAnimation,
					generation.CapabilityRetexture,
				},
				Pricing: &generation.Pricing{Unit: "task", Rate: 0.2},
				Constraints: &generation.Constraints{
					MinPolygons: 100,
					MaxPolygons: 300000,
				},
			},
			{
				ID:   "meshy-4",
				Name: "Meshy 4",
				Capabilities: []generation.Capability{
					generation.CapabilityTextTo3D,
					generation.CapabilityImageTo3D,
					generation.CapabilityRetexture,
				},
				Pricing: &generation.Pricing{Unit: "task", Rate: 0.1},
			},
		},
		TaskTypes: []generation.TaskType{
			generation.TaskTypeTextTo3D,
			generation.TaskTypeImageTo3D,
			generation.TaskTypeRig,
			generation.TaskTypeAnimate,
			generation.TaskTypeRetexture,
		},
	}
}

type taskResponse struct {
	// Submission responses carry the new task id in "result"; status
	// responses carry it in "id".
	Result    string         `json:"result"`
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Progress  int            `json:"progress"`
	ModelURLs map[string]string `json:"model_urls"`
	TaskError *struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

// Generate submits a text-to-3d preview task.
func (a *Adapter) Generate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := map[string]any{
		"mode":     "preview",
		"prompt":   req.Prompt,
		"ai_model": modelID,
	}
	if req.Style != "" {
		body["art_style"] = req.Style
	}
	if req.Seed != nil {
		body["seed"] = *req.Seed
	}
	return a.submit(ctx, "/openapi/v2/text-to-3d", body, creds, generation.TaskTypeTextTo3D)
}

// ConvertImage submits an image-to-3d task.
func (a *Adapter) ConvertImage(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := map[string]any{
		"image_url": req.Image,
		"ai_model":  modelID,
	}
	if req.Prompt != "" {
		body["prompt"] = req.Prompt
	}
	return a.submit(ctx, "/openapi/v1/image-to-3d", body, creds, generation.TaskTypeImageTo3D)
}

// Rig submits a rigging task for an existing model, referenced either by
// a prior task id or by a model URL.
func (a *Adapter) Rig(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := map[string]any{}
	switch req.Input.Kind {
	case generation.InputKindTask:
		body["input_task_id"] = req.Input.ID
	case generation.InputKindFile:
		body["model_url"] = req.Input.Path
	}
	return a.submit(ctx, "/openapi/v1/rigging", body, creds, generation.TaskTypeRig)
}

// Animate submits an animation task for a previously rigged model.
func (a *Adapter) Animate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := map[string]any{
		"rig_task_id": req.RigTaskID,
		"action_id":   req.ActionID,
	}
	return a.submit(ctx, "/openapi/v1/animations", body, creds, generation.TaskTypeAnimate)
}

// Retexture submits a retexture task driven by a text prompt.
func (a *Adapter) Retexture(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := map[string]any{
		"text_style_prompt": req.Prompt,
		"ai_model":          modelID,
	}
	switch req.Input.Kind {
	case generation.InputKindTask:
		body["input_task_id"] = req.Input.ID
	case generation.InputKindFile:
		body["model_url"] = req.Input.Path
	}
	return a.submit(ctx, "/openapi/v1/retexture", body, creds, generation.TaskTypeRetexture)
}

func (a *Adapter) submit(ctx context.Context, path string, body map[string]any, creds generation.Credentials, taskType generation.TaskType) (*orchestrator.Submission, error) {
	parsed, err := a.call(ctx, http.MethodPost, path, body, creds)
	if err != nil {
		return nil, err
	}
	taskID := parsed.Result
	if taskID == "" {
		taskID = parsed.ID
	}
	if taskID == "" {
		return nil, &apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  "meshy accepted the request but returned no task id",
		}
	}
	return &orchestrator.Submission{
		Task: &generation.Task{
			ID:       taskID,
			Provider: providerID,
			Type:     taskType,
			Status:   generation.StatusPending,
		},
	}, nil
}

// Poll performs one status check for a task.
func (a *Adapter) Poll(ctx context.Context, taskID string, taskType generation.TaskType, creds generation.Credentials) (*generation.Task, error) {
	parsed, err := a.call(ctx, http.MethodGet, statusPath(taskType)+"/"+taskID, nil, creds)
	if err != nil {
		return nil, err
	}

	task := &generation.Task{
		ID:       taskID,
		Provider: providerID,
		Type:     taskType,
		Status:   generation.Status(parsed.Status),
		Progress: generation.ClampProgress(parsed.Progress),
	}
	switch task.Status {
	case generation.StatusPending, generation.StatusInProgress,
		generation.StatusSucceeded, generation.StatusFailed, generation.StatusCanceled:
	default:
		task.Status = generation.StatusPending
	}

	if task.Status == generation.StatusSucceeded {
		task.Progress = 100
		// Prefer glb, which every downstream viewer accepts.
		if url := parsed.ModelURLs["glb"]; url != "" {
			task.Artifacts = append(task.Artifacts, generation.RemoteArtifact{
				URL:  url,
				MIME: "model/gltf-binary",
			})
		} else if url := parsed.ModelURLs["fbx"]; url != "" {
			task.Artifacts = append(task.Artifacts, generation.RemoteArtifact{URL: url})
		}
	}
	if task.Status == generation.StatusFailed {
		if parsed.TaskError != nil && parsed.TaskError.Message != "" {
			task.Error = parsed.TaskError.Message
		} else {
			task.Error = "meshy reported the task as failed"
		}
	}
	return task, nil
}

// ValidateCredentials lists existing tasks as a read-only probe.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds generation.Credentials) (bool, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/openapi/v2/text-to-3d?page_size=1", nil)
	if err != nil {
		return false, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey())

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return false, "", apperrors.Network(providerID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, "", nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, "meshy rejected the api key", nil
	default:
		return false, "", &apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  fmt.Sprintf("unexpected status %d from credential probe", resp.StatusCode),
			Status:   resp.StatusCode,
		}
	}
}

func (a *Adapter) call(ctx context.Context, method, path string, body map[string]any, creds generation.Credentials) (*taskResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey())

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network(providerID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network(providerID, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, apperrors.FromHTTP(providerID, resp.StatusCode, respBody)
	}

	var parsed taskResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Network(providerID, fmt.Errorf("unmarshal response: %w", err))
	}
	return &parsed, nil
}

func statusPath(taskType generation.TaskType) string {
	switch taskType {
	case generation.TaskTypeTextTo3D:
		return "/openapi/v2/text-to-3d"
	case generation.TaskTypeImageTo3D:
		return "/openapi/v1/image-to-3d"
	case generation.TaskTypeRig:
		return "/openapi/v1/rigging"
	case generation.TaskTypeAnimate:
		return "/openapi/v1/animations"
	default:
		return "/openapi/v1/retexture"
	}
}
