package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mediaforge/server/internal/domain/generation"
	apperrors "github.com/mediaforge/server/internal/shared/errors"
	"github.com/mediaforge/server/internal/shared/logger"
	"github.com/mediaforge/server/internal/utils/metrics"
	"github.com/mediaforge/server/internal/utils/random"
)

// maxArtifactSize bounds a single artifact download.
const maxArtifactSize = 2 << 30 // 2 GiB

// Materializer downloads remote artifacts from completed tasks and
// persists them to per-modality local stores under collision-resistant
// names, producing stable by-path access references.
type Materializer struct {
	client  *http.Client
	dirs    map[generation.Modality]string
	log     *logger.Logger
	metrics *metrics.Metrics

	now     func() time.Time
	suffix  func(int) string
	maxSize int64
}

// NewMaterializer creates a materializer writing into the given
// per-modality output directories. Directories are created on demand.
func NewMaterializer(client *http.Client, dirs map[generation.Modality]string, log *logger.Logger, m *metrics.Metrics) *Materializer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Materializer{
		client:  client,
		dirs:    dirs,
		log:     log,
		metrics: m,
		now:     time.Now,
		suffix:  random.Suffix,
		maxSize: maxArtifactSize,
	}
}

// Dir returns the output directory for a modality.
func (m *Materializer) Dir(modality generation.Modality) string {
	return m.dirs[modality]
}

// Materialize downloads every remote artifact and writes it under the
// modality's store. The prefix identifies the originating operation in
// the generated filename. Any download failure aborts with a normalized
// download error.
func (m *Materializer) Materialize(ctx context.Context, modality generation.Modality, prefix, providerID string, remotes []generation.RemoteArtifact, creds generation.Credentials) ([]generation.Artifact, *apperrors.Error) {
	dir := m.dirs[modality]
	if dir == "" {
		dir = filepath.Join("data", string(modality))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Download(providerID, fmt.Errorf("create output dir: %w", err))
	}

	out := make([]generation.Artifact, 0, len(remotes))
	for _, remote := range remotes {
		start := m.now()
		artifact, err := m.materializeOne(ctx, dir, modality, prefix, providerID, remote, creds)
		if m.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.metrics.DownloadsTotal.WithLabelValues(string(modality), status).Inc()
			m.metrics.DownloadDuration.Observe(m.now().Sub(start).Seconds())
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *artifact)
	}
	return out, nil
}

func (m *Materializer) materializeOne(ctx context.Context, dir string, modality generation.Modality, prefix, providerID string, remote generation.RemoteArtifact, creds generation.Credentials) (*generation.Artifact, *apperrors.Error) {
	var (
		data []byte
		mime = remote.MIME
	)

	if len(remote.Data) > 0 {
		data = remote.Data
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote.URL, nil)
		if err != nil {
			return nil, apperrors.Download(providerID, err)
		}
		if remote.Authenticated {
			req.Header.Set("Authorization", "Bearer "+creds.APIKey())
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, apperrors.Download(providerID, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.Download(providerID, fmt.Errorf("artifact fetch returned status %d", resp.StatusCode))
		}
		if mime == "" {
			mime = strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0])
		}

		// Read one byte past the cap so an oversized body is detected
		// instead of persisted truncated.
		data, err = io.ReadAll(io.LimitReader(resp.Body, m.maxSize+1))
		if err != nil {
			return nil, apperrors.Download(providerID, err)
		}
		if int64(len(data)) > m.maxSize {
			return nil, apperrors.Download(providerID, fmt.Errorf("artifact exceeds the %d byte download limit", m.maxSize))
		}
		if m.metrics != nil {
			m.metrics.DownloadBytes.Add(float64(len(data)))
		}
	}

	if mime == "" {
		mime = mimeFromURL(remote.URL, modality)
	}

	filename := fmt.Sprintf("%s-%d-%s%s", sanitizePrefix(prefix), m.now().UnixMilli(), m.suffix(6), extensionFor(mime, remote.URL))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, apperrors.Download(providerID, fmt.Errorf("write artifact: %w", err))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	m.log.Info("artifact materialized",
		"modality", modality,
		"provider", providerID,
		"filename", filename,
		"bytes", len(data),
	)

	return &generation.Artifact{
		RemoteURL: remote.URL,
		FilePath:  abs,
		Filename:  filename,
		MIME:      mime,
		AccessURL: AccessURL(modality, abs),
	}, nil
}

// AccessURL builds the by-path indirection reference for a local file.
// The raw filesystem path is never exposed as the external reference; the
// file-serving collaborator resolves it.
func AccessURL(modality generation.Modality, path string) string {
	return fmt.Sprintf("/%s/by-path?path=%s", modality, url.QueryEscape(path))
}

// sanitizePrefix keeps filename prefixes shell- and URL-safe.
func sanitizePrefix(prefix string) string {
	if prefix == "" {
		return "artifact"
	}
	var b strings.Builder
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// extensionFor derives a file extension from the reported MIME type,
// falling back to the URL path extension.
func extensionFor(mime, rawURL string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "model/gltf-binary":
		return ".glb"
	case "model/gltf+json":
		return ".gltf"
	case "model/obj":
		return ".obj"
	case "application/fbx", "model/fbx":
		return ".fbx"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".bin"
}

// mimeFromURL guesses a MIME type from the URL path extension, falling
// back to a modality default.
func mimeFromURL(rawURL string, modality generation.Modality) string {
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(filepath.Ext(u.Path)) {
		case ".png":
			return "image/png"
		case ".jpg", ".jpeg":
			return "image/jpeg"
		case ".webp":
			return "image/webp"
		case ".mp4":
			return "video/mp4"
		case ".webm":
			return "video/webm"
		case ".glb":
			return "model/gltf-binary"
		case ".gltf":
			return "model/gltf+json"
		case ".fbx":
			return "model/fbx"
		case ".obj":
			return "model/obj"
		}
	}
	switch modality {
	case generation.ModalityImage:
		return "image/png"
	case generation.ModalityVideo:
		return "video/mp4"
	default:
		return "model/gltf-binary"
	}
}
