package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
}

func TestTaskType_Modality(t *testing.T) {
	assert.Equal(t, ModalityVideo, TaskTypeTextToVideo.Modality())
	assert.Equal(t, ModalityVideo, TaskTypeFrameBridge.Modality())
	assert.Equal(t, ModalityModel3D, TaskTypeTextTo3D.Modality())
	assert.Equal(t, ModalityModel3D, TaskTypeAnimate.Modality())
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0, ClampProgress(-5))
	assert.Equal(t, 0, ClampProgress(0))
	assert.Equal(t, 42, ClampProgress(42))
	assert.Equal(t, 100, ClampProgress(100))
	assert.Equal(t, 100, ClampProgress(250))
}

func TestModelInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		input ModelInput
		valid bool
	}{
		{"Task input with id", ModelInput{Kind: InputKindTask, ID: "t-123"}, true},
		{"Task input missing id", ModelInput{Kind: InputKindTask}, false},
		{"File input with path", ModelInput{Kind: InputKindFile, Path: "/tmp/model.glb"}, true},
		{"File input missing path", ModelInput{Kind: InputKindFile}, false},
		{"Unknown kind", ModelInput{Kind: "url", ID: "x"}, false},
		{"Empty kind", ModelInput{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.input.Validate()
			if tt.valid {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
