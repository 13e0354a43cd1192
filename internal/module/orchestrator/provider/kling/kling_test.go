package kling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/server/internal/domain/generation"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

func testCreds() generation.Credentials {
	return generation.Credentials{"api_key": "ak-123,sk-456"}
}

func okSubmit(taskID string) string {
	return `{"code":0,"message":"SUCCEED","data":{"task_id":"` + taskID + `","task_status":"submitted"}}`
}

func TestGenerate_SubmitsSignedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/videos/text2video", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		require.NotEmpty(t, raw)
		tok, err := jwt.Parse(raw, func(jt *jwt.Token) (any, error) {
			require.Equal(t, jwt.SigningMethodHS256, jt.Method)
			return []byte("sk-456"), nil
		})
		require.NoError(t, err)
		iss, err := tok.Claims.GetIssuer()
		require.NoError(t, err)
		assert.Equal(t, "ak-123", iss)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "kling-v1-6", body["model_name"])
		assert.Equal(t, "a drone shot", body["prompt"])
		assert.Equal(t, "std", body["mode"])
		assert.Equal(t, "5", body["duration"])
		assert.Equal(t, "16:9", body["aspect_ratio"])

		_, _ = w.Write([]byte(okSubmit("task-1")))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.Generate(context.Background(), &generation.Request{
		Prompt:      "a drone shot",
		Duration:    5,
		AspectRatio: "16:9",
	}, testCreds(), "kling-v1-6")
	require.NoError(t, err)

	require.NotNil(t, sub.Task)
	assert.Equal(t, "task-1", sub.Task.ID)
	assert.Equal(t, "kling", sub.Task.Provider)
	assert.Equal(t, generation.TaskTypeTextToVideo, sub.Task.Type)
	assert.Equal(t, generation.StatusPending, sub.Task.Status)
}

func TestGenerate_ProMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pro", body["mode"])
		_, _ = w.Write([]byte(okSubmit("task-2")))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.Generate(context.Background(), &generation.Request{Prompt: "p", Style: "pro"}, testCreds(), "kling-v1-6")
	require.NoError(t, err)
}

func TestBridgeFrames_SendsBothFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/image2video", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "first-b64", body["image"])
		assert.Equal(t, "last-b64", body["image_tail"])
		_, _ = w.Write([]byte(okSubmit("task-3")))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.BridgeFrames(context.Background(), &generation.Request{
		Prompt:     "morph",
		FirstFrame: "first-b64",
		LastFrame:  "last-b64",
	}, testCreds(), "kling-v1-6")
	require.NoError(t, err)
	assert.Equal(t, generation.TaskTypeFrameBridge, sub.Task.Type)
}

func TestExtend_SendsVideoID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/video-extend", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "vid-9", body["video_id"])
		_, _ = w.Write([]byte(okSubmit("task-4")))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	sub, err := a.Extend(context.Background(), &generation.Request{Video: "vid-9"}, testCreds(), "kling-v1-6")
	require.NoError(t, err)
	assert.Equal(t, generation.TaskTypeVideoExtend, sub.Task.Type)
}

func TestSubmit_MissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"message":"SUCCEED","data":{}}`))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.Generate(context.Background(), &generation.Request{Prompt: "p"}, testCreds(), "kling-v1-6")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAPI, appErr.Kind)
}

func TestPoll_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus generation.Status
		wantErr    string
		wantURLs   int
	}{
		{
			name:       "submitted",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"submitted"}}`,
			wantStatus: generation.StatusPending,
		},
		{
			name:       "processing",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"processing"}}`,
			wantStatus: generation.StatusInProgress,
		},
		{
			name:       "succeed with videos",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"succeed","task_result":{"videos":[{"id":"v1","url":"https://cdn.kling/v1.mp4"}]}}}`,
			wantStatus: generation.StatusSucceeded,
			wantURLs:   1,
		},
		{
			name:       "failed with message",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"failed","task_status_msg":"content flagged"}}`,
			wantStatus: generation.StatusFailed,
			wantErr:    "content flagged",
		},
		{
			name:       "failed without message",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"failed"}}`,
			wantStatus: generation.StatusFailed,
			wantErr:    "kling reported the task as failed",
		},
		{
			name:       "unknown status treated as pending",
			body:       `{"code":0,"data":{"task_id":"t","task_status":"queued_somewhere"}}`,
			wantStatus: generation.StatusPending,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/videos/text2video/t", r.URL.Path)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			a := New(srv.Client(), srv.URL)
			task, err := a.Poll(context.Background(), "t", generation.TaskTypeTextToVideo, testCreds())
			require.NoError(t, err)

			assert.Equal(t, tc.wantStatus, task.Status)
			assert.Equal(t, tc.wantErr, task.Error)
			require.Len(t, task.Artifacts, tc.wantURLs)
			if tc.wantURLs > 0 {
				assert.Equal(t, "https://cdn.kling/v1.mp4", task.Artifacts[0].URL)
				assert.Equal(t, "video/mp4", task.Artifacts[0].MIME)
				assert.Equal(t, 100, task.Progress)
			}
		})
	}
}

func TestPoll_ExtendUsesExtendPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/video-extend/t", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":0,"data":{"task_id":"t","task_status":"submitted"}}`))
	}))
	defer srv.Close()

	a := New(srv.Client(), srv.URL)
	_, err := a.Poll(context.Background(), "t", generation.TaskTypeVideoExtend, testCreds())
	require.NoError(t, err)
}

func TestAPICodeMapping(t *testing.T) {
	cases := []struct {
		code int
		kind apperrors.Kind
	}{
		{1000, apperrors.KindCredentials},
		{1004, apperrors.KindCredentials},
		{1100, apperrors.KindQuota},
		{1102, apperrors.KindQuota},
		{1300, apperrors.KindSafety},
		{1301, apperrors.KindRateLimited},
		{1303, apperrors.KindRateLimited},
		{5000, apperrors.KindAPI},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := json.Marshal(map[string]any{"code": tc.code, "message": "boom"})
			_, _ = w.Write(raw)
		}))

		a := New(srv.Client(), srv.URL)
		_, err := a.Generate(context.Background(), &generation.Request{Prompt: "p"}, testCreds(), "kling-v1-6")
		srv.Close()
		require.Error(t, err, "code %d", tc.code)

		appErr, ok := err.(*apperrors.Error)
		require.True(t, ok)
		assert.Equal(t, tc.kind, appErr.Kind, "code %d", tc.code)
		assert.Contains(t, appErr.Message, "boom")
	}
}

func TestBadCredentialFormat(t *testing.T) {
	a := New(http.DefaultClient, "http://invalid.test")
	for _, key := range []string{"just-one-key", "", " , "} {
		_, err := a.Generate(context.Background(), &generation.Request{Prompt: "p"},
			generation.Credentials{"api_key": key}, "kling-v1-6")
		require.Error(t, err, "key %q", key)

		appErr, ok := err.(*apperrors.Error)
		require.True(t, ok)
		assert.Equal(t, apperrors.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Message, "access_key,secret_key")
	}
}

func TestSignToken_Expiry(t *testing.T) {
	a := New(nil, "")
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return frozen }

	raw, err := a.signToken(testCreds())
	require.NoError(t, err)

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) { return []byte("sk-456"), nil },
		jwt.WithTimeFunc(func() time.Time { return frozen }))
	require.NoError(t, err)

	exp, err := tok.Claims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, frozen.Add(30*time.Minute).Unix(), exp.Unix())

	nbf, err := tok.Claims.GetNotBefore()
	require.NoError(t, err)
	assert.Equal(t, frozen.Add(-5*time.Second).Unix(), nbf.Unix())
}

func TestValidateCredentials(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":0,"data":{}}`))
		}))
		defer srv.Close()

		a := New(srv.Client(), srv.URL)
		ok, reason, err := a.ValidateCredentials(context.Background(), testCreds())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":1002,"message":"invalid signature"}`))
		}))
		defer srv.Close()

		a := New(srv.Client(), srv.URL)
		ok, reason, err := a.ValidateCredentials(context.Background(), testCreds())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, reason, "invalid signature")
	})
}

func TestDescriptor(t *testing.T) {
	d := New(nil, "").Descriptor()
	assert.Equal(t, "kling", d.ID)
	assert.Equal(t, generation.ModalityVideo, d.Modality)
	assert.Len(t, d.TaskTypes, 4)

	m, ok := d.Model("kling-v1-6")
	require.True(t, ok)
	require.NotNil(t, m.Constraints)
	assert.Equal(t, 5, m.Constraints.MinDurationSec)
	assert.Equal(t, 10, m.Constraints.MaxDurationSec)
}
