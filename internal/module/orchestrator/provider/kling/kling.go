// Package kling implements the asynchronous video generation adapter for
// the Kling API. Requests are signed with a short-lived JWT built from an
// access/secret key pair.
package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

const (
	providerID     = "kling"
	defaultBaseURL = "https://api.klingai.com"
	tokenTTL       = 30 * time.Minute
)

// Adapter translates unified video requests into Kling API calls. All
// operations are asynchronous: submission returns a task handle that is
// polled until terminal.
type Adapter struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// New creates a Kling video adapter.
func New(client *http.Client, baseURL string) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), now: time.Now}
}

// Descriptor returns the provider identity and model catalog.
func (a *Adapter) Descriptor() generation.ProviderDescriptor {
	videoConstraints := &generation.Constraints{
		MinDurationSec: 5,
		MaxDurationSec: 10,
		AspectRatios:   []string{"16:9", "9:16", "1:1"},
	}
	return generation.ProviderDescriptor{
		ID:       providerID,
		Name:     "Kling",
		Modality: generation.ModalityVideo,
		Models: []generation.ModelDescriptor{
			{
				ID:   "kling-v1-6",
				Name: "Kling 1.6",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToVideo,
					generation.CapabilityImageToVideo,
					generation.CapabilityFrameBridge,
					generation.CapabilityVideoExtend,
				},
				Pricing:     &generation.Pricing{Unit: "second", Rate: 0.07},
				Constraints: videoConstraints,
			},
			{
				ID:   "kling-v2-master",
				Name: "Kling 2.0 Master",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToVideo,
					generation.CapabilityImageToVideo,
				},
				Pricing:     &generation.Pricing{Unit: "second", Rate: 0.14},
				Constraints: videoConstraints,
			},
		},
		TaskTypes: []generation.TaskType{
			generation.TaskTypeTextToVideo,
			generation.TaskTypeImageToVideo,
			generation.TaskTypeFrameBridge,
			generation.TaskTypeVideoExtend,
		},
	}
}

type submitRequest struct {
	ModelName   string  `json:"model_name,omitempty"`
	Prompt      string  `json:"prompt,omitempty"`
	Image       string  `json:"image,omitempty"`
	ImageTail   string  `json:"image_tail,omitempty"`
	VideoID     string  `json:"video_id,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	CfgScale    float64 `json:"cfg_scale,omitempty"`
}

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID        string `json:"task_id"`
		TaskStatus    string `json:"task_status"`
		TaskStatusMsg string `json:"task_status_msg"`
		TaskResult    *struct {
			Videos []struct {
				ID       string `json:"id"`
				URL      string `json:"url"`
				Duration string `json:"duration"`
			} `json:"videos"`
		} `json:"task_result"`
	} `json:"data"`
}

// Generate submits a text-to-video task.
func (a *Adapter) Generate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := &submitRequest{
		ModelName:   modelID,
		Prompt:      req.Prompt,
		Mode:        modeFor(req),
		Duration:    durationField(req.Duration),
		AspectRatio: req.AspectRatio,
		CfgScale:    0.5,
	}
	return a.submit(ctx, "/v1/videos/text2video", body, creds, generation.TaskTypeTextToVideo)
}

// ConvertImage submits an image-to-video task.
func (a *Adapter) ConvertImage(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := &submitRequest{
		ModelName:   modelID,
		Prompt:      req.Prompt,
		Image:       req.Image,
		Mode:        modeFor(req),
		Duration:    durationField(req.Duration),
		AspectRatio: req.AspectRatio,
		CfgScale:    0.5,
	}
	return a.submit(ctx, "/v1/videos/image2video", body, creds, generation.TaskTypeImageToVideo)
}

// BridgeFrames submits an image-to-video task bounded by a first and last
// frame.
func (a *Adapter) BridgeFrames(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := &submitRequest{
		ModelName: modelID,
		Prompt:    req.Prompt,
		Image:     req.FirstFrame,
		ImageTail: req.LastFrame,
		Mode:      modeFor(req),
		Duration:  durationField(req.Duration),
		CfgScale:  0.5,
	}
	return a.submit(ctx, "/v1/videos/image2video", body, creds, generation.TaskTypeFrameBridge)
}

// Extend submits a video extension task. The source is the vendor video
// id returned by an earlier generation.
func (a *Adapter) Extend(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	body := &submitRequest{
		VideoID: req.Video,
		Prompt:  req.Prompt,
	}
	return a.submit(ctx, "/v1/videos/video-extend", body, creds, generation.TaskTypeVideoExtend)
}

func (a *Adapter) submit(ctx context.Context, path string, body *submitRequest, creds generation.Credentials, taskType generation.TaskType) (*orchestrator.Submission, error) {
	parsed, err := a.call(ctx, http.MethodPost, path, body, creds)
	if err != nil {
		return nil, err
	}
	if parsed.Data.TaskID == "" {
		return nil, &apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  "kling accepted the request but returned no task id",
		}
	}
	return &orchestrator.Submission{
		Task: &generation.Task{
			ID:       parsed.Data.TaskID,
			Provider: providerID,
			Type:     taskType,
			Status:   generation.StatusPending,
		},
	}, nil
}

// Poll performs one status check for a task.
func (a *Adapter) Poll(ctx context.Context, taskID string, taskType generation.TaskType, creds generation.Credentials) (*generation.Task, error) {
	parsed, err := a.call(ctx, http.MethodGet, pollPath(taskType)+"/"+taskID, nil, creds)
	if err != nil {
		return nil, err
	}

	task := &generation.Task{
		ID:       taskID,
		Provider: providerID,
		Type:     taskType,
	}
	switch parsed.Data.TaskStatus {
	case "submitted":
		task.Status = generation.StatusPending
	case "processing":
		task.Status = generation.StatusInProgress
		task.Progress = 50
	case "succeed":
		task.Status = generation.StatusSucceeded
		task.Progress = 100
		if parsed.Data.TaskResult != nil {
			for _, v := range parsed.Data.TaskResult.Videos {
				task.Artifacts = append(task.Artifacts, generation.RemoteArtifact{
					URL:  v.URL,
					MIME: "video/mp4",
				})
			}
		}
	case "failed":
		task.Status = generation.StatusFailed
		task.Error = parsed.Data.TaskStatusMsg
		if task.Error == "" {
			task.Error = "kling reported the task as failed"
		}
	default:
		task.Status = generation.StatusPending
	}
	return task, nil
}

// ValidateCredentials lists recent tasks, a read-only call that exercises
// the signing path.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds generation.Credentials) (bool, string, error) {
	_, err := a.call(ctx, http.MethodGet, "/v1/videos/text2video?pageNum=1&pageSize=1", nil, creds)
	if err != nil {
		if appErr, ok := err.(*apperrors.Error); ok && appErr.Kind == apperrors.KindCredentials {
			return false, appErr.Message, nil
		}
		return false, "", err
	}
	return true, "", nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body *submitRequest, creds generation.Credentials) (*apiResponse, error) {
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

	token, err := a.signToken(creds)
	if err != nil {
		return nil, apperrors.Validation("kling credentials must be an access_key,secret_key pair: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Network(providerID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network(providerID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.FromHTTP(providerID, resp.StatusCode, respBody)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Network(providerID, fmt.Errorf("unmarshal response: %w", err))
	}
	if parsed.Code != 0 {
		return nil, normalizeAPICode(parsed.Code, parsed.Message)
	}
	return &parsed, nil
}

// signToken builds the short-lived JWT Kling expects: issuer set to the
// access key, signed with the secret key.
func (a *Adapter) signToken(creds generation.Credentials) (string, error) {
	key := creds.APIKey()
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("expected \"access_key,secret_key\"")
	}
	access := strings.TrimSpace(parts[0])
	secret := strings.TrimSpace(parts[1])
	if access == "" || secret == "" {
		return "", fmt.Errorf("access or secret key is empty")
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": access,
		"exp": now.Add(tokenTTL).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// normalizeAPICode maps Kling's in-body status codes, which arrive with
// HTTP 200, onto the shared taxonomy.
func normalizeAPICode(code int, message string) *apperrors.Error {
	kind := apperrors.KindAPI
	switch code {
	case 1000, 1001, 1002, 1003, 1004:
		kind = apperrors.KindCredentials
	case 1100, 1101, 1102:
		kind = apperrors.KindQuota
	case 1300:
		kind = apperrors.KindSafety
	case 1301, 1302, 1303:
		kind = apperrors.KindRateLimited
	}
	return &apperrors.Error{
		Kind:     kind,
		Provider: providerID,
		Message:  fmt.Sprintf("kling error %d: %s", code, message),
	}
}

func pollPath(taskType generation.TaskType) string {
	switch taskType {
	case generation.TaskTypeTextToVideo:
		return "/v1/videos/text2video"
	case generation.TaskTypeVideoExtend:
		return "/v1/videos/video-extend"
	default:
		// image-to-video and frame-bridge share a submission endpoint.
		return "/v1/videos/image2video"
	}
}

func modeFor(req *generation.Request) string {
	if req.Style == "pro" {
		return "pro"
	}
	return "std"
}

func durationField(seconds int) string {
	if seconds == 0 {
		return ""
	}
	return strconv.Itoa(seconds)
}
