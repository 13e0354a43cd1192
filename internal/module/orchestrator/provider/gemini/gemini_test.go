package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/server/internal/domain/generation"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

func testCreds() generation.Credentials {
	return generation.Credentials{"api_key": "goog-key"}
}

func inlineImageResponse(texts []string, images ...string) string {
	type respPart struct {
		Text       string `json:"text,omitempty"`
		InlineData *struct {
			MIMEType string `json:"mimeType"`
			Data     string `json:"data"`
		} `json:"inlineData,omitempty"`
	}
	var parts []respPart
	for _, img := range images {
		p := respPart{}
		p.InlineData = &struct {
			MIMEType string `json:"mimeType"`
			Data     string `json:"data"`
		}{MIMEType: "image/png", Data: img}
		parts = append(parts, p)
	}
	for _, txt := range texts {
		parts = append(parts, respPart{Text: txt})
	}
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": parts}},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestGenerate_InlineImages(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "goog-key", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cfg := body["generationConfig"].(map[string]any)
		assert.ElementsMatch(t, []any{"TEXT", "IMAGE"}, cfg["responseModalities"])

		_, _ = w.Write([]byte(inlineImageResponse(nil, img)))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.Generate(context.Background(), &generation.Request{Prompt: "a red fox"}, testCreds(), "gemini-2.5-flash-image")
	require.NoError(t, err)

	require.Len(t, sub.Artifacts, 1)
	assert.Equal(t, []byte("png-bytes"), sub.Artifacts[0].Data)
	assert.Equal(t, "image/png", sub.Artifacts[0].MIME)
	assert.Empty(t, sub.Warning)
}

func TestGenerate_PartialRefusalBecomesWarning(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(inlineImageResponse([]string{"I can produce one image but not the violent variant."}, img)))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.Generate(context.Background(), &generation.Request{Prompt: "two scenes"}, testCreds(), "gemini-2.5-flash-image")
	require.NoError(t, err)

	assert.Len(t, sub.Artifacts, 1)
	assert.Contains(t, sub.Warning, "not the violent variant", "refusal text rides along with the produced images")
}

func TestGenerate_FullRefusalIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(inlineImageResponse([]string{"I cannot generate this image due to safety policy."})))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.Generate(context.Background(), &generation.Request{Prompt: "bad"}, testCreds(), "gemini-2.5-flash-image")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindSafety, appErr.Kind)
	assert.Contains(t, appErr.Message, "cannot generate")
}

func TestGenerate_PromptBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"PROHIBITED_CONTENT"}}`))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.Generate(context.Background(), &generation.Request{Prompt: "bad"}, testCreds(), "gemini-2.5-flash-image")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindSafety, appErr.Kind)
	assert.Contains(t, appErr.Message, "PROHIBITED_CONTENT")
}

func TestEdit_SendsImageBeforePrompt(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("src"))
	out := base64.StdEncoding.EncodeToString([]byte("edited"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		parts := body.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0], "inline_data")
		assert.Equal(t, "make it blue", parts[1]["text"])

		_, _ = w.Write([]byte(inlineImageResponse(nil, out)))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.Edit(context.Background(), &generation.Request{
		Prompt: "make it blue",
		Image:  "data:image/jpeg;base64," + img,
	}, testCreds(), "gemini-2.5-flash-image")
	require.NoError(t, err)
	assert.Len(t, sub.Artifacts, 1)
}

func TestEdit_RejectsNonBase64Input(t *testing.T) {
	a := New(http.DefaultClient, "http://invalid.test")
	_, err := a.Edit(context.Background(), &generation.Request{
		Prompt: "make it blue",
		Image:  "https://example.com/photo.png",
	}, testCreds(), "gemini-2.5-flash-image")

	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
}

func TestImagePart_DataURLMIME(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("x"))

	p, err := imagePart("data:image/webp;base64," + img)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", p.InlineData.MIMEType)

	p, err = imagePart(img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.InlineData.MIMEType, "raw base64 defaults to png")
}

func TestDescriptor(t *testing.T) {
	a := New(nil, "")
	d := a.Descriptor()

	assert.Equal(t, "gemini", d.ID)
	assert.Equal(t, generation.ModalityImage, d.Modality)
	m, ok := d.DefaultModel()
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash-image", m.ID)
}
