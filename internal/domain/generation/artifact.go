package generation

// RemoteArtifact is one produced unit of media as reported by a provider,
// before materialization. Either URL or Data is set.
type RemoteArtifact struct {
	// URL is the provider-hosted location of the artifact.
	URL string
	// Data holds inline artifact bytes for providers that return content
	// directly in the response body instead of hosting it.
	Data []byte
	// MIME is the content type reported by the provider.
	MIME string
	// Authenticated marks artifacts whose download requires the same
	// credentials used for generation.
	Authenticated bool
}

// Artifact is a materialized unit of media: the remote reference plus the
// local file it was persisted to and the stable access reference handed to
// callers.
type Artifact struct {
	RemoteURL string `json:"remote_url,omitempty"`
	FilePath  string `json:"file_path"`
	Filename  string `json:"filename"`
	MIME      string `json:"mime_type"`
	// AccessURL is the by-path indirection resolved by the file-serving
	// collaborator, e.g. /images/by-path?path=<url-encoded path>.
	AccessURL string `json:"url"`
}
