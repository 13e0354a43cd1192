package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
	"github.com/mediaforge/server/internal/shared/logger"
)

type catalogAdapter struct {
	descriptor generation.ProviderDescriptor
}

func (a *catalogAdapter) Descriptor() generation.ProviderDescriptor { return a.descriptor }

func (a *catalogAdapter) Generate(context.Context, *generation.Request, generation.Credentials, string) (*orchestrator.Submission, error) {
	return nil, errors.New("not used")
}

func newSystemRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := orchestrator.BuildRegistry([]orchestrator.Adapter{
		&catalogAdapter{descriptor: generation.ProviderDescriptor{
			ID:       "openai",
			Name:     "OpenAI",
			Modality: generation.ModalityImage,
			Models: []generation.ModelDescriptor{
				{ID: "gpt-image-1", Capabilities: []generation.Capability{generation.CapabilityTextToImage}},
			},
		}},
		&catalogAdapter{descriptor: generation.ProviderDescriptor{
			ID:       "kling",
			Name:     "Kling",
			Modality: generation.ModalityVideo,
			Models:   []generation.ModelDescriptor{{ID: "kling-v1-6"}},
			TaskTypes: []generation.TaskType{
				generation.TaskTypeTextToVideo,
			},
		}},
	}, logger.Discard())

	r := gin.New()
	NewSystemHandler(registry, nil).RegisterRoutes(r)
	return r
}

func TestHealthz(t *testing.T) {
	r := newSystemRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))

	require.Equal(t, nethttp.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListProviders(t *testing.T) {
	r := newSystemRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/api/v1/providers", nil))

	require.Equal(t, nethttp.StatusOK, w.Code)

	var body struct {
		Providers []struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Modality  string   `json:"modality"`
			TaskTypes []string `json:"task_types"`
			Models    []struct {
				ID           string   `json:"id"`
				Capabilities []string `json:"capabilities"`
			} `json:"models"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Providers, 2)

	byID := map[string]int{}
	for i, p := range body.Providers {
		byID[p.ID] = i
	}
	require.Contains(t, byID, "openai")
	require.Contains(t, byID, "kling")

	oa := body.Providers[byID["openai"]]
	assert.Equal(t, "image", oa.Modality)
	require.Len(t, oa.Models, 1)
	assert.Equal(t, "gpt-image-1", oa.Models[0].ID)
	assert.Contains(t, oa.Models[0].Capabilities, "text-to-image")

	kl := body.Providers[byID["kling"]]
	assert.Equal(t, "video", kl.Modality)
	assert.Contains(t, kl.TaskTypes, "text-to-video")
}
