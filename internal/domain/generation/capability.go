// Package generation contains domain entities for multi-provider media
// generation: capabilities, provider/model descriptors, requests, tasks,
// artifacts and results.
package generation

// Modality identifies the kind of media an operation produces.
type Modality string

const (
	ModalityImage   Modality = "image"
	ModalityVideo   Modality = "video"
	ModalityModel3D Modality = "model3d"
)

// String returns the string representation of the modality.
func (m Modality) String() string {
	return string(m)
}

// IsValid checks if the modality is valid.
func (m Modality) IsValid() bool {
	switch m {
	case ModalityImage, ModalityVideo, ModalityModel3D:
		return true
	default:
		return false
	}
}

// Capability is a discrete supported operation drawn from a closed vocabulary.
type Capability string

const (
	CapabilityTextToImage    Capability = "text-to-image"
	CapabilityImageEdit      Capability = "image-edit"
	CapabilityReferenceImage Capability = "reference-image"
	CapabilityTextToVideo    Capability = "text-to-video"
	CapabilityImageToVideo   Capability = "image-to-video"
	CapabilityVideoExtend    Capability = "video-extend"
	CapabilityFrameBridge    Capability = "frame-bridge"
	CapabilityTextTo3D       Capability = "text-to-3d"
	CapabilityImageTo3D      Capability = "image-to-3d"
	CapabilityRigging        Capability = "rigging"
	CapabilityAnimation      Capability = "animation"
	CapabilityRetexture      Capability = "retexture"
)

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// Modality returns the modality a capability produces output for.
func (c Capability) Modality() Modality {
	switch c {
	case CapabilityTextToImage, CapabilityImageEdit, CapabilityReferenceImage:
		return ModalityImage
	case CapabilityTextToVideo, CapabilityImageToVideo, CapabilityVideoExtend, CapabilityFrameBridge:
		return ModalityVideo
	default:
		return ModalityModel3D
	}
}

// Operation names an entry point on the tool call surface.
type Operation string

const (
	OpGenerate              Operation = "generate"
	OpEdit                  Operation = "edit"
	OpGenerateWithReference Operation = "generate_with_reference"
	OpImageTo               Operation = "image_to"
	OpExtend                Operation = "extend"
	OpBridgeFrames          Operation = "bridge_frames"
	OpRig                   Operation = "rig"
	OpAnimate               Operation = "animate"
	OpRetexture             Operation = "retexture"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// RequiredCapability maps an operation in a modality to the model capability
// it needs. The second return is false when the combination is meaningless
// (e.g. rigging an image).
func (o Operation) RequiredCapability(m Modality) (Capability, bool) {
	switch o {
	case OpGenerate:
		switch m {
		case ModalityImage:
			return CapabilityTextToImage, true
		case ModalityVideo:
			return CapabilityTextToVideo, true
		case ModalityModel3D:
			return CapabilityTextTo3D, true
		}
	case OpEdit:
		if m == ModalityImage {
			return CapabilityImageEdit, true
		}
	case OpGenerateWithReference:
		if m == ModalityImage {
			return CapabilityReferenceImage, true
		}
	case OpImageTo:
		switch m {
		case ModalityVideo:
			return CapabilityImageToVideo, true
		case ModalityModel3D:
			return CapabilityImageTo3D, true
		}
	case OpExtend:
		if m == ModalityVideo {
			return CapabilityVideoExtend, true
		}
	case OpBridgeFrames:
		if m == ModalityVideo {
			return CapabilityFrameBridge, true
		}
	case OpRig:
		if m == ModalityModel3D {
			return CapabilityRigging, true
		}
	case OpAnimate:
		if m == ModalityModel3D {
			return CapabilityAnimation, true
		}
	case OpRetexture:
		if m == ModalityModel3D {
			return CapabilityRetexture, true
		}
	}
	return "", false
}

// Describe returns a human phrase for error messages.
func (o Operation) Describe() string {
	switch o {
	case OpGenerate:
		return "generation"
	case OpEdit:
		return "image editing"
	case OpGenerateWithReference:
		return "reference-guided generation"
	case OpImageTo:
		return "image-to-media conversion"
	case OpExtend:
		return "video extension"
	case OpBridgeFrames:
		return "frame bridging"
	case OpRig:
		return "rigging"
	case OpAnimate:
		return "animation"
	case OpRetexture:
		return "retexturing"
	default:
		return string(o)
	}
}
