package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/shared/logger"
)

// fakeClock advances instantly on Sleep so wait-mode tests run without
// real delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps++
	return nil
}

// fakeAdapter implements every optional operation and records call counts.
type fakeAdapter struct {
	descriptor generation.ProviderDescriptor

	submission *Submission
	err        error

	pollStates []*generation.Task
	pollErr    error

	mu       sync.Mutex
	calls    int
	polls    int
	lastReq  *generation.Request
	lastCred generation.Credentials
}

func (f *fakeAdapter) Descriptor() generation.ProviderDescriptor { return f.descriptor }

func (f *fakeAdapter) invoke(req *generation.Request, creds generation.Credentials) (*Submission, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.lastCred = creds
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.submission, nil
}

func (f *fakeAdapter) Generate(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) Edit(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) GenerateWithReference(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) ConvertImage(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) Extend(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) BridgeFrames(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) Rig(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) Animate(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

func (f *fakeAdapter) Retexture(_ context.Context, req *generation.Request, creds generation.Credentials, _ string) (*Submission, error) {
	return f.invoke(req, creds)
}

// Poll replays pollStates in order, repeating the last state once the
// sequence is exhausted.
func (f *fakeAdapter) Poll(_ context.Context, taskID string, taskType generation.TaskType, _ generation.Credentials) (*generation.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	idx := f.polls
	f.polls++
	if idx >= len(f.pollStates) {
		idx = len(f.pollStates) - 1
	}
	st := f.pollStates[idx]
	return &generation.Task{
		ID:        taskID,
		Provider:  f.descriptor.ID,
		Type:      taskType,
		Status:    st.Status,
		Progress:  st.Progress,
		Error:     st.Error,
		Artifacts: st.Artifacts,
	}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// minimalAdapter implements only the mandatory Adapter interface.
type minimalAdapter struct {
	descriptor generation.ProviderDescriptor
}

func (m *minimalAdapter) Descriptor() generation.ProviderDescriptor { return m.descriptor }

func (m *minimalAdapter) Generate(context.Context, *generation.Request, generation.Credentials, string) (*Submission, error) {
	return &Submission{}, nil
}

func imageAdapter() *fakeAdapter {
	return &fakeAdapter{
		descriptor: generation.ProviderDescriptor{
			ID:       "openai",
			Name:     "OpenAI",
			Modality: generation.ModalityImage,
			Models: []generation.ModelDescriptor{
				{
					ID: "gpt-image-1",
					Capabilities: []generation.Capability{
						generation.CapabilityTextToImage,
						generation.CapabilityImageEdit,
						generation.CapabilityReferenceImage,
					},
				},
				{
					ID:           "dall-e-2",
					Capabilities: []generation.Capability{generation.CapabilityTextToImage},
				},
			},
		},
	}
}

func videoAdapter() *fakeAdapter {
	return &fakeAdapter{
		descriptor: generation.ProviderDescriptor{
			ID:       "kling",
			Name:     "Kling",
			Modality: generation.ModalityVideo,
			Models: []generation.ModelDescriptor{
				{
					ID: "kling-v1-6",
					Capabilities: []generation.Capability{
						generation.CapabilityTextToVideo,
						generation.CapabilityImageToVideo,
					},
					Constraints: &generation.Constraints{
						MinDurationSec: 5,
						MaxDurationSec: 10,
						AspectRatios:   []string{"16:9", "9:16", "1:1"},
					},
				},
			},
			TaskTypes: []generation.TaskType{
				generation.TaskTypeTextToVideo,
				generation.TaskTypeImageToVideo,
			},
		},
	}
}

func modelAdapter() *fakeAdapter {
	return &fakeAdapter{
		descriptor: generation.ProviderDescriptor{
			ID:       "meshy",
			Name:     "Meshy",
			Modality: generation.ModalityModel3D,
			Models: []generation.ModelDescriptor{
				{
					ID: "meshy-5",
					Capabilities: []generation.Capability{
						generation.CapabilityTextTo3D,
						generation.CapabilityRigging,
						generation.CapabilityAnimation,
					},
				},
			},
			TaskTypes: []generation.TaskType{
				generation.TaskTypeTextTo3D,
				generation.TaskTypeRig,
				generation.TaskTypeAnimate,
			},
		},
	}
}

func testOptions() *Options {
	return &Options{
		Image:   ModalityDefaults{APIKey: "img-key"},
		Video:   ModalityDefaults{APIKey: "vid-key"},
		Model3D: ModalityDefaults{APIKey: "mdl-key"},
	}
}

func testLogger() *logger.Logger { return logger.Discard() }
