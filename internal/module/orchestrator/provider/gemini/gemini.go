// Package gemini implements the image generation adapter for the Google
// Gemini API. Responses arrive as multi-part content mixing inline image
// bytes and text; refusal text is surfaced, never silently dropped.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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
	providerID     = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Adapter translates unified image requests into Gemini generateContent
// calls. Generation, editing and reference-guided generation all use the
// same endpoint with different part layouts.
type Adapter struct {
	client  *http.Client
	baseURL string
}

// New creates a Gemini image adapter.
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
		Name:     "Google Gemini",
		Modality: generation.ModalityImage,
		Models: []generation.ModelDescriptor{
			{
				ID:          "gemini-2.5-flash-image",
				Name:        "Gemini 2.5 Flash Image",
				Description: "Conversational image generation and editing",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToImage,
					generation.CapabilityImageEdit,
					generation.CapabilityReferenceImage,
				},
				Pricing: &generation.Pricing{Unit: "image", Rate: 0.039},
			},
			{
				ID:   "gemini-2.0-flash-preview-image-generation",
				Name: "Gemini 2.0 Flash Image (preview)",
				Capabilities: []generation.Capability{
					generation.CapabilityTextToImage,
					generation.CapabilityImageEdit,
				},
			},
		},
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
	SafetySettings []safetySetting `json:"safetySettings,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate generates images from a text prompt.
func (a *Adapter) Generate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	parts := []part{{Text: req.Prompt}}
	return a.generateContent(ctx, parts, creds, modelID, req.SafetyMode)
}

// Edit applies an instruction-guided edit to a source image.
func (a *Adapter) Edit(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	imgPart, err := imagePart(req.Image)
	if err != nil {
		return nil, apperrors.Validation("image must be base64 or a data URL for gemini editing: %v", err)
	}
	parts := []part{*imgPart, {Text: req.Prompt}}
	return a.generateContent(ctx, parts, creds, modelID, req.SafetyMode)
}

// GenerateWithReference generates an image guided by reference inputs.
func (a *Adapter) GenerateWithReference(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*orchestrator.Submission, error) {
	parts := make([]part, 0, len(req.References)+1)
	for i, ref := range req.References {
		p, err := imagePart(ref)
		if err != nil {
			return nil, apperrors.Validation("reference %d must be base64 or a data URL: %v", i+1, err)
		}
		parts = append(parts, *p)
	}
	parts = append(parts, part{Text: req.Prompt})
	return a.generateContent(ctx, parts, creds, modelID, req.SafetyMode)
}

func (a *Adapter) generateContent(ctx context.Context, parts []part, creds generation.Credentials, modelID, safetyMode string) (*orchestrator.Submission, error) {
	var body generateContentRequest
	body.Contents = make([]struct {
		Parts []part `json:"parts"`
	}, 1)
	body.Contents[0].Parts = parts
	body.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	if safetyMode != "" {
		body.SafetySettings = []safetySetting{
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: safetyMode},
		}
	}

	payload, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.baseURL, modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", creds.APIKey())

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

	var parsed generateContentResponse
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
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return nil, &apperrors.Error{
			Kind:     apperrors.KindSafety,
			Provider: providerID,
			Message:  fmt.Sprintf("gemini blocked the prompt: %s", parsed.PromptFeedback.BlockReason),
		}
	}

	var (
		artifacts []generation.RemoteArtifact
		refusals  []string
	)
	for _, cand := range parsed.Candidates {
		if cand.FinishReason == "SAFETY" || cand.FinishReason == "PROHIBITED_CONTENT" {
			refusals = append(refusals, fmt.Sprintf("candidate finished with reason %s", cand.FinishReason))
		}
		for _, p := range cand.Content.Parts {
			switch {
			case p.InlineData != nil:
				raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, apperrors.Network(providerID, fmt.Errorf("decode inline image: %w", err))
				}
				mime := p.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				artifacts = append(artifacts, generation.RemoteArtifact{Data: raw, MIME: mime})
			case strings.TrimSpace(p.Text) != "":
				refusals = append(refusals, strings.TrimSpace(p.Text))
			}
		}
	}

	// No images at all: the text is the refusal, surface it as the error.
	if len(artifacts) == 0 {
		msg := "gemini returned no images"
		if len(refusals) > 0 {
			msg = refusals[0]
		}
		kind := apperrors.KindAPI
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "safety") || strings.Contains(lower, "policy") || strings.Contains(lower, "cannot") {
			kind = apperrors.KindSafety
		}
		return nil, &apperrors.Error{Kind: kind, Provider: providerID, Message: msg}
	}

	// Partial refusal: some images plus refusal text. The text rides
	// along as a warning instead of being dropped.
	sub := &orchestrator.Submission{Artifacts: artifacts}
	if len(refusals) > 0 {
		sub.Warning = strings.Join(refusals, "; ")
	}
	return sub, nil
}

// ValidateCredentials performs a read-only models listing.
func (a *Adapter) ValidateCredentials(ctx context.Context, creds generation.Credentials) (bool, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1beta/models", nil)
	if err != nil {
		return false, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", creds.APIKey())

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

// imagePart builds an inline-data part from base64 or a data URL.
func imagePart(input string) (*part, error) {
	if input == "" {
		return nil, fmt.Errorf("empty image input")
	}
	mime := "image/png"
	if strings.HasPrefix(input, "data:") {
		idx := strings.Index(input, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		meta := input[len("data:"):idx]
		if semi := strings.Index(meta, ";"); semi >= 0 {
			meta = meta[:semi]
		}
		if meta != "" {
			mime = meta
		}
		input = input[idx+1:]
	}
	if _, err := base64.StdEncoding.DecodeString(input); err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return &part{InlineData: &inlineData{MIMEType: mime, Data: input}}, nil
}
