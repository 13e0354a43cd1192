package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRegistry(t *testing.T) {
	r := BuildRegistry([]Adapter{imageAdapter(), videoAdapter(), modelAdapter()}, testLogger())

	assert.Equal(t, []string{"openai", "kling", "meshy"}, r.IDs())
	assert.Len(t, r.List(), 3)

	a, ok := r.Get("kling")
	assert.True(t, ok)
	assert.Equal(t, "kling", a.Descriptor().ID)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestBuildRegistry_DuplicateOverwrites(t *testing.T) {
	first := imageAdapter()
	second := imageAdapter()
	second.descriptor.Name = "OpenAI (replacement)"

	r := BuildRegistry([]Adapter{first, second}, testLogger())

	assert.Equal(t, []string{"openai"}, r.IDs(), "duplicate id keeps one entry")
	a, _ := r.Get("openai")
	assert.Equal(t, "OpenAI (replacement)", a.Descriptor().Name, "later registration wins")
}

func TestRegistry_FindProviderForModel(t *testing.T) {
	r := BuildRegistry([]Adapter{imageAdapter(), videoAdapter()}, testLogger())

	t.Run("Model resolves to owning provider", func(t *testing.T) {
		a, ok := r.FindProviderForModel("kling-v1-6")
		assert.True(t, ok)
		assert.Equal(t, "kling", a.Descriptor().ID)
	})

	t.Run("Unknown model resolves to nothing", func(t *testing.T) {
		_, ok := r.FindProviderForModel("sora-2")
		assert.False(t, ok)
	})

	t.Run("First registered provider wins on shared ids", func(t *testing.T) {
		dupe := videoAdapter()
		dupe.descriptor.ID = "kling2"
		reg := BuildRegistry([]Adapter{videoAdapter(), dupe}, testLogger())

		a, ok := reg.FindProviderForModel("kling-v1-6")
		assert.True(t, ok)
		assert.Equal(t, "kling", a.Descriptor().ID)
	})
}
