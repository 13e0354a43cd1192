// Package orchestrator drives multi-provider generation: it resolves
// provider/model/credentials per call, dispatches to vendor adapters,
// runs the asynchronous task lifecycle and materializes artifacts.
package orchestrator

import (
	"context"

	"github.com/mediaforge/server/internal/domain/generation"
)

// Submission is what an adapter returns when a vendor accepts work.
// Synchronous vendors populate Artifacts; asynchronous vendors populate
// Task. Warning carries non-fatal vendor notes.
type Submission struct {
	Task      *generation.Task
	Artifacts []generation.RemoteArtifact
	Warning   string
}

// Adapter translates the unified request shape into one vendor's API and
// translates the vendor response back. Generate is mandatory; the
// remaining operations are declared by implementing the optional
// interfaces below. Adapters absorb all vendor quirks: no vendor field
// names leak into the unified shapes.
type Adapter interface {
	// Descriptor returns the provider's identity, model list and task
	// types. Called once at registry build time.
	Descriptor() generation.ProviderDescriptor

	// Generate runs the provider's primary generation operation.
	Generate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Editor is implemented by adapters whose vendor supports image editing.
type Editor interface {
	Edit(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// ReferenceGenerator is implemented by adapters supporting
// reference-guided generation.
type ReferenceGenerator interface {
	GenerateWithReference(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// ImageConverter is implemented by adapters that turn an image into
// another modality (image-to-video, image-to-3d).
type ImageConverter interface {
	ConvertImage(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Extender is implemented by adapters supporting video extension.
type Extender interface {
	Extend(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// FrameBridger is implemented by adapters that generate video between a
// first and last frame.
type FrameBridger interface {
	BridgeFrames(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Rigger is implemented by adapters supporting 3D model rigging.
type Rigger interface {
	Rig(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Animator is implemented by adapters supporting rigged model animation.
type Animator interface {
	Animate(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Retexturer is implemented by adapters supporting 3D retexturing.
type Retexturer interface {
	Retexture(ctx context.Context, req *generation.Request, creds generation.Credentials, modelID string) (*Submission, error)
}

// Poller is implemented by adapters whose vendor runs asynchronous jobs.
// Poll performs exactly one status check. The returned task reflects the
// vendor state at poll time and carries remote artifacts once succeeded.
type Poller interface {
	Poll(ctx context.Context, taskID string, taskType generation.TaskType, creds generation.Credentials) (*generation.Task, error)
}

// CredentialValidator is implemented by adapters that can verify
// credentials with a lightweight read-only vendor call.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, creds generation.Credentials) (bool, string, error)
}

// operationFunc returns the adapter method implementing an operation, or
// nil when the adapter does not declare it.
func operationFunc(a Adapter, op generation.Operation) func(context.Context, *generation.Request, generation.Credentials, string) (*Submission, error) {
	switch op {
	case generation.OpGenerate:
		return a.Generate
	case generation.OpEdit:
		if e, ok := a.(Editor); ok {
			return e.Edit
		}
	case generation.OpGenerateWithReference:
		if g, ok := a.(ReferenceGenerator); ok {
			return g.GenerateWithReference
		}
	case generation.OpImageTo:
		if c, ok := a.(ImageConverter); ok {
			return c.ConvertImage
		}
	case generation.OpExtend:
		if e, ok := a.(Extender); ok {
			return e.Extend
		}
	case generation.OpBridgeFrames:
		if b, ok := a.(FrameBridger); ok {
			return b.BridgeFrames
		}
	case generation.OpRig:
		if r, ok := a.(Rigger); ok {
			return r.Rig
		}
	case generation.OpAnimate:
		if an, ok := a.(Animator); ok {
			return an.Animate
		}
	case generation.OpRetexture:
		if r, ok := a.(Retexturer); ok {
			return r.Retexture
		}
	}
	return nil
}
