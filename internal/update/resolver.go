// Package update polls remote descriptors for newer bundle revisions
// and downloads them.
//
// A descriptor URL is turned into a short-lived Resolver via
// Checker.CheckURL. Resolvers answer "is an update available" and fetch
// the new revision; Cleanup must run exactly once after use, whatever
// the outcome.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// ErrUnresolvedDescriptor marks a URL that did not yield a usable
// resolver: network failure, malformed descriptor, or an unrecognized
// format. Callers treat it as a soft validation failure.
var ErrUnresolvedDescriptor = errors.New("unresolved update descriptor")

// Resolver is obtained from an update descriptor URL. It is short
// lived: use it, then Cleanup it, error or not.
type Resolver interface {
	// Name identifies the resolver kind, e.g. "descriptor" or "github".
	Name() string

	// IsUpdateAvailable reports whether the remote revision differs
	// from the installed one.
	IsUpdateAvailable(ctx context.Context, app *appimage.App) (bool, error)

	// Fetch downloads the latest revision to dest, reporting fractional
	// progress in [0,1], and returns the remote version string.
	Fetch(ctx context.Context, dest string, progress func(float64)) (string, error)

	// Cleanup releases any resources held by the resolver. Must be
	// called exactly once.
	Cleanup() error
}

// URLChecker turns descriptor URLs into resolvers. Checker is the real
// implementation; tests substitute their own.
type URLChecker interface {
	CheckURL(ctx context.Context, rawURL string) Resolver
}

// Checker recognizes update descriptor URLs and builds resolvers for
// them.
type Checker struct {
	client *retryablehttp.Client
}

// NewChecker returns a checker with a quiet retrying HTTP client.
func NewChecker() *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &Checker{client: client}
}

// CheckURL resolves a descriptor URL into a Resolver, or nil when the
// URL does not point at a recognized update source. A nil result is a
// soft failure; the caller reports it without aborting anything.
func (c *Checker) CheckURL(ctx context.Context, rawURL string) Resolver {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	if u.Host == "github.com" || u.Host == "www.github.com" {
		if r := newGitHubResolver(c.client, u); r != nil {
			return r
		}
		return nil
	}

	if strings.HasSuffix(strings.ToLower(u.Path), ".json") {
		if r := newDescriptorResolver(ctx, c.client, rawURL); r != nil {
			return r
		}
	}
	return nil
}

// download streams url to dest, reporting fractional progress when the
// response carries a length. The progress callback may be nil.
func download(ctx context.Context, client *retryablehttp.Client, rawURL, dest string, progress func(float64)) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: status %s", rawURL, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	var written int64
	total := resp.ContentLength
	buf := make([]byte, 128*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			written += int64(n)
			if progress != nil && total > 0 {
				progress(float64(written) / float64(total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", rawURL, readErr)
		}
	}

	if progress != nil {
		progress(1.0)
	}
	return nil
}
