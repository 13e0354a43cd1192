// Package openai implements the image generation adapter for the OpenAI
// Images API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

const (
	providerID     = "openai"
	defaultBaseURL = "https://api.openai.com"
	// maxPromptLen is the documented prompt limit of the images API.
	maxPromptLen = 32000
)

// Adapter translates unified image requests into OpenAI Images API calls.
// Generation and editing are synchronous.
type Adapter struct {
	client  *http.Client
	baseURL string
}

// New creates an OpenAI image adapter.
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
		Name:     "OpenAI",
		Modality: generation.ModalityImage,
		Models: []generation.ModelDescriptor{
			{
				ID:          "gpt-image-1",
				Name:        "GPT Image 1",
				Description: "Natively multimodal image generation and editing",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToImage,
					generation.CapabilityImageEdit,
					generation.CapabilityReferenceImage,
				},
				Pricing: &generation.Pricing{Unit: "image", Rate: 0.04},
				Constraints: &generation.Constraints{
					Resolutions: []string{"1024x1024", "1536x1024", "1024x1536"},
				},
			},
			{
				ID:           "dall-e-3",
				Name:         "DALL-E 3",
				Capabilities: []generation.Capability{generation.CapabilityTextToImage},
				Pricing:      &generation.Pricing{Unit: "image", Rate: 0.04},
				Constraints: &generation.Constraints{
					Resolutions: []string{"1024x1024", "1792x1024", "1024x1792"},
				},
			},
			{
				ID:   "dall-e-2",
				Name: "DALL-E 2",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToImage,
					generation.CapabilityImageEdit,
				},
				Pricing: &generation.Pricing{Unit: "image", Rate: 0.02},
				Constraints: &generation.Constraints{
					Resolutions: []string{"256x256", "512x512", "1024x1024"},
				},
			},
		},
	}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate generates images from a text prompt.
func (a *Adapter) Generate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	if len(req.Prompt) > maxPromptLen {
		return nil, apperrors.Validation("prompt exceeds the %d character limit", maxPromptLen)
	}

	body := &imageRequest{
		Model:  modelID,
		Prompt: req.Prompt,
		N:      req.N,
		Size:   req.Size,
		Style:  req.Style,
	}
	if body.N == 0 {
		body.N = 1
	}
	if body.Size == "" {
		body.Size = "1024x1024"
	}
	// gpt-image-1 always returns base64; the URL format only applies to
	// the DALL-E models.
	if modelID != "gpt-image-1" {
		body.ResponseFormat = "url"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey())

	return a.doImageRequest(httpReq)
}

// Edit applies an instruction-guided edit to a source image. The API
// takes multipart form data, so the source must be supplied as base64 or
// a data URL.
func (a *Adapter) Edit(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	return a.editWithImages(ctx, req.Prompt, []string{req.Image}, creds, modelID, req.Size)
}

// GenerateWithReference generates an image guided by reference images via
// the edits endpoint, which accepts multiple source images.
func (a *Adapter) GenerateWithReference(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	return a.editWithImages(ctx, req.Prompt, req.References, creds, modelID, req.Size)
}

func (a *Adapter) editWithImages(ctx context.Context, prompt string, images []string, creds generation.Credentials, modelID, size string) (*orchestrator.Submission, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", modelID); err != nil {
		return nil, fmt.Errorf("write form field: %w", err)
	}
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("write form field: %w", err)
	}
	if size != "" {
		if err := w.WriteField("size", size); err != nil {
			return nil, fmt.Errorf("write form field: %w", err)
		}
	}

	for i, img := range images {
		data, err := decodeImageInput(img)
		if err != nil {
			return nil, apperrors.Validation("image %d must be base64 or a data URL for openai editing: %v", i+1, err)
		}
		part, err := w.CreateFormFile("image[]", fmt.Sprintf("image-%d.png", i+1))
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey())

	return a.doImageRequest(httpReq)
}

func (a *Adapter) doImageRequest(httpReq *http.Request) (*orchestrator.Submission, error) {
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

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.Network(providerID, fmt.Errorf("unmarshal response: %w", err))
	}
	if parsed.Error != nil {
		return nil, &apperrors.Error{
			Kind:     apperrors.KindAPI,
			Provider: providerID,
			Message:  parsed.Error.Message,
		}
	}

	artifacts := make([]generation.RemoteArtifact, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		switch {
		case d.URL != "":
			artifacts = append(artifacts, generation.RemoteArtifact{URL: d.URL, MIME: "image/png"})
		case d.B64JSON != "":
			raw, err := base64.StdEncoding.DecodeString(d.B64JSON)
			if err != nil {
				return nil, apperrors.Network(providerID, fmt.Errorf("decode image payload: %w", err))
			}
			artifacts = append(artifacts, generation.RemoteArtifact{Data: raw, MIME: "image/png"})
		}
	}
	return &orchestrator.Submission{Artifacts: artifacts}, nil
}

// ValidateCredentials performs a read-only models listing to verify the
// API key.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds generation.Credentials) (bool, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return false, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey())

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return false, "", apperrors.Network(providerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, "", nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return false, fmt.Sprintf("models listing returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil
}

// decodeImageInput accepts raw base64 or a data URL.
func decodeImageInput(input string) ([]byte, error) {
	if input == "" {
		return nil, fmt.Errorf("empty image input")
	}
	if strings.HasPrefix(input, "data:") {
		idx := strings.Index(input, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		input = input[idx+1:]
	}
	return base64.StdEncoding.DecodeString(input)
}
