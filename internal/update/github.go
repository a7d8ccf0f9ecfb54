package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// githubResolver tracks the latest release of a GitHub repository and
// picks its AppImage asset.
type githubResolver struct {
	client *retryablehttp.Client
	owner  string
	repo   string
	apiURL string

	mu      sync.Mutex
	release *githubRelease

	cleanupOnce sync.Once
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name        string `json:"name"`
		DownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// newGitHubResolver recognizes repository URLs of the form
// github.com/<owner>/<repo>[/releases...]. Returns nil for anything
// else.
func newGitHubResolver(client *retryablehttp.Client, u *url.URL) *githubResolver {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil
	}
	owner, repo := parts[0], parts[1]
	return &githubResolver{
		client: client,
		owner:  owner,
		repo:   repo,
		apiURL: fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo),
	}
}

func (r *githubResolver) Name() string { return "github" }

// latest fetches and caches the newest release document.
func (r *githubResolver) latest(ctx context.Context) (*githubRelease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.release != nil {
		return r.release, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, r.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release for %s/%s: %w", r.owner, r.repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch latest release for %s/%s: status %s", r.owner, r.repo, resp.Status)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release for %s/%s: %w", r.owner, r.repo, err)
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release for %s/%s has no tag", r.owner, r.repo)
	}
	r.release = &release
	return r.release, nil
}

// IsUpdateAvailable compares the latest release tag against the
// installed version.
func (r *githubResolver) IsUpdateAvailable(ctx context.Context, app *appimage.App) (bool, error) {
	release, err := r.latest(ctx)
	if err != nil {
		return false, err
	}
	return app.Version == "" || normalizeVersion(release.TagName) != normalizeVersion(app.Version), nil
}

// Fetch downloads the release's AppImage asset to dest.
func (r *githubResolver) Fetch(ctx context.Context, dest string, progress func(float64)) (string, error) {
	release, err := r.latest(ctx)
	if err != nil {
		return "", err
	}

	var assetURL string
	for _, asset := range release.Assets {
		if strings.HasSuffix(strings.ToLower(asset.Name), ".appimage") {
			assetURL = asset.DownloadURL
			break
		}
	}
	if assetURL == "" {
		return "", fmt.Errorf("release %s of %s/%s carries no AppImage asset", release.TagName, r.owner, r.repo)
	}

	if err := download(ctx, r.client, assetURL, dest, progress); err != nil {
		return "", err
	}
	return normalizeVersion(release.TagName), nil
}

// Cleanup drops the cached release document.
func (r *githubResolver) Cleanup() error {
	r.cleanupOnce.Do(func() {
		r.mu.Lock()
		r.release = nil
		r.mu.Unlock()
	})
	return nil
}
