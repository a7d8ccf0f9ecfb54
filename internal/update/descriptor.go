package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// descriptor is the static update document format: a small JSON file
// published next to the bundle naming the latest version and where to
// get it.
type descriptor struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA256  string `json:"sha256,omitempty"`
}

// descriptorResolver serves updates described by a static JSON
// document.
type descriptorResolver struct {
	client *retryablehttp.Client
	desc   descriptor

	workDir     string
	cleanupOnce sync.Once
}

// newDescriptorResolver fetches and parses the descriptor at rawURL.
// Returns nil when the document cannot be fetched or does not parse as
// a descriptor; the URL is then simply not recognized.
func newDescriptorResolver(ctx context.Context, client *retryablehttp.Client, rawURL string) *descriptorResolver {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var desc descriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil
	}
	if desc.Version == "" || desc.URL == "" {
		return nil
	}
	return &descriptorResolver{client: client, desc: desc}
}

func (r *descriptorResolver) Name() string { return "descriptor" }

// IsUpdateAvailable compares the descriptor version against the
// installed one. An app without a recorded version is always
// updatable.
func (r *descriptorResolver) IsUpdateAvailable(ctx context.Context, app *appimage.App) (bool, error) {
	return app.Version == "" || normalizeVersion(r.desc.Version) != normalizeVersion(app.Version), nil
}

// Fetch downloads the descriptor's bundle URL to dest.
func (r *descriptorResolver) Fetch(ctx context.Context, dest string, progress func(float64)) (string, error) {
	if err := download(ctx, r.client, r.desc.URL, dest, progress); err != nil {
		return "", err
	}
	return normalizeVersion(r.desc.Version), nil
}

// Cleanup removes any scratch space. Safe to call once only, but
// idempotent in practice.
func (r *descriptorResolver) Cleanup() error {
	var err error
	r.cleanupOnce.Do(func() {
		if r.workDir != "" {
			err = os.RemoveAll(r.workDir)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to remove resolver scratch dir: %w", err)
	}
	return nil
}

// normalizeVersion strips a leading "v" so tags and plain versions
// compare equal.
func normalizeVersion(v string) string {
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}
