package orchestrator

import (
	"context"
	"strings"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/shared/config"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
)

// ModalityDefaults carries the configured selection for one modality.
type ModalityDefaults struct {
	Provider string
	Model    string
	APIKey   string
}

// Options is the typed configuration consumed by the resolver, assembled
// once at startup instead of scattered environment lookups.
type Options struct {
	Image   ModalityDefaults
	Video   ModalityDefaults
	Model3D ModalityDefaults

	// LegacyKey returns the vendor-named API key fallback for a provider
	// id. Injectable so precedence is unit-testable without the process
	// environment.
	LegacyKey func(providerID string) string
}

// OptionsFromConfig assembles resolver options from loaded configuration.
func OptionsFromConfig(cfg config.GenerationConfig) *Options {
	return &Options{
		Image:     ModalityDefaults{Provider: cfg.Image.Provider, Model: cfg.Image.Model, APIKey: cfg.Image.APIKey},
		Video:     ModalityDefaults{Provider: cfg.Video.Provider, Model: cfg.Video.Model, APIKey: cfg.Video.APIKey},
		Model3D:   ModalityDefaults{Provider: cfg.Model3D.Provider, Model: cfg.Model3D.Model, APIKey: cfg.Model3D.APIKey},
		LegacyKey: config.LegacyProviderKey,
	}
}

func (o *Options) defaults(m generation.Modality) ModalityDefaults {
	switch m {
	case generation.ModalityImage:
		return o.Image
	case generation.ModalityVideo:
		return o.Video
	default:
		return o.Model3D
	}
}

// builtinDefaultProvider is the hard-coded last-resort provider per
// modality.
func builtinDefaultProvider(m generation.Modality) string {
	switch m {
	case generation.ModalityImage:
		return "openai"
	case generation.ModalityVideo:
		return "kling"
	default:
		return "meshy"
	}
}

// Resolution is the outcome of resolving one tool call: the chosen
// adapter, model and credential bag, plus the bound operation.
type Resolution struct {
	Adapter    Adapter
	Descriptor generation.ProviderDescriptor
	Model      generation.ModelDescriptor
	Creds      generation.Credentials

	invoke func(context.Context, *generation.Request, generation.Credentials, string) (*Submission, error)
}

// Invoke runs the resolved operation against the resolved provider.
func (r *Resolution) Invoke(ctx context.Context, req *generation.Request) (*Submission, error) {
	return r.invoke(ctx, req, r.Creds, r.Model.ID)
}

// Resolver determines provider, model and credentials for each call using
// a fixed precedence order: explicit parameter, configured modality
// default, legacy vendor variable, built-in default. All checks are local;
// no network call is made until resolution succeeds.
type Resolver struct {
	registry *Registry
	opts     *Options
}

// NewResolver creates a resolver over the given registry and options.
func NewResolver(registry *Registry, opts *Options) *Resolver {
	if opts.LegacyKey == nil {
		opts.LegacyKey = func(string) string { return "" }
	}
	return &Resolver{registry: registry, opts: opts}
}

// Resolve selects provider, model and credentials for one operation and
// validates the selection. It fails descriptively: unknown providers and
// models are reported together with the known alternatives.
func (r *Resolver) Resolve(modality generation.Modality, op generation.Operation, req *generation.Request) (*Resolution, *apperrors.Error) {
	defaults := r.opts.defaults(modality)

	providerID := firstNonEmpty(req.Provider, defaults.Provider)
	modelID := firstNonEmpty(req.Model, defaults.Model)

	var adapter Adapter
	if providerID == "" {
		// No provider chosen anywhere. An explicitly requested model can
		// still select its owning provider; otherwise fall back to the
		// built-in default.
		if modelID != "" {
			if owner, ok := r.registry.FindProviderForModel(modelID); ok {
				adapter = owner
				providerID = owner.Descriptor().ID
			}
		}
		if adapter == nil {
			providerID = builtinDefaultProvider(modality)
		}
	}

	if adapter == nil {
		var ok bool
		adapter, ok = r.registry.Get(providerID)
		if !ok {
			return nil, apperrors.Resolution(
				"provider %q not found; known providers: %s",
				providerID, strings.Join(r.registry.IDs(), ", "),
			)
		}
	}
	desc := adapter.Descriptor()

	var model *generation.ModelDescriptor
	if modelID == "" {
		var ok bool
		model, ok = desc.DefaultModel()
		if !ok {
			return nil, apperrors.Resolution("provider %q declares no models", providerID)
		}
	} else {
		var ok bool
		model, ok = desc.Model(modelID)
		if !ok {
			return nil, apperrors.Resolution(
				"model %q not found for provider %q; known models: %s",
				modelID, providerID, strings.Join(desc.ModelIDs(), ", "),
			)
		}
	}

	creds := r.resolveCredentials(req, defaults, providerID)
	if creds.Empty() {
		return nil, apperrors.Resolution(
			"no credentials configured for provider %q; supply api_key or set the provider's key variable",
			providerID,
		)
	}

	cap, ok := op.RequiredCapability(modality)
	if !ok {
		return nil, apperrors.Validation("operation %s is not defined for modality %s", op, modality)
	}
	if !model.Supports(cap) {
		return nil, apperrors.Resolution(
			"model %q does not support %s; its capabilities are: %s",
			model.ID, op.Describe(), joinCapabilities(model.Capabilities),
		)
	}
	invoke := operationFunc(adapter, op)
	if invoke == nil {
		return nil, apperrors.Resolution(
			"provider %q does not implement %s", providerID, op.Describe(),
		)
	}

	return &Resolution{
		Adapter:    adapter,
		Descriptor: desc,
		Model:      *model,
		Creds:      creds,
		invoke:     invoke,
	}, nil
}

// ResolveForTask selects the adapter and credentials for a task status
// check. The task type must be one the provider actually creates;
// mismatched pairings fail with a validation error instead of reaching
// the vendor.
func (r *Resolver) ResolveForTask(q *generation.TaskQuery) (Adapter, generation.Credentials, *apperrors.Error) {
	modality := q.TaskType.Modality()
	defaults := r.opts.defaults(modality)

	providerID := firstNonEmpty(q.Provider, defaults.Provider, builtinDefaultProvider(modality))
	adapter, ok := r.registry.Get(providerID)
	if !ok {
		return nil, nil, apperrors.Resolution(
			"provider %q not found; known providers: %s",
			providerID, strings.Join(r.registry.IDs(), ", "),
		)
	}

	desc := adapter.Descriptor()
	if !desc.OwnsTaskType(q.TaskType) {
		return nil, nil, apperrors.Validation(
			"task type %q is not produced by provider %q; its task types are: %s",
			q.TaskType, providerID, joinTaskTypes(desc.TaskTypes),
		)
	}
	if _, ok := adapter.(Poller); !ok {
		return nil, nil, apperrors.Resolution("provider %q does not support task status checks", providerID)
	}

	key := firstNonEmpty(q.APIKey, defaults.APIKey, r.opts.LegacyKey(providerID))
	creds := generation.Credentials{"api_key": key}
	if creds.Empty() {
		return nil, nil, apperrors.Resolution(
			"no credentials configured for provider %q; supply api_key or set the provider's key variable",
			providerID,
		)
	}
	return adapter, creds, nil
}

func (r *Resolver) resolveCredentials(req *generation.Request, defaults ModalityDefaults, providerID string) generation.Credentials {
	key := firstNonEmpty(req.APIKey, defaults.APIKey, r.opts.LegacyKey(providerID))
	return generation.Credentials{"api_key": key}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinCapabilities(caps []generation.Capability) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func joinTaskTypes(types []generation.TaskType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
