package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// maxRemoteBodyBytes caps how much we read from a remote entrypoint.
const maxRemoteBodyBytes = 64 << 20

// Fetcher resolves source entrypoints into canonical payloads. The zero value
// is not usable; construct with NewFetcher.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given timeout applied to remote
// fetches. A non-positive timeout selects the 20s default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch resolves an entrypoint and parses the result with the named dataset
// variant. Fixture entrypoints bypass parsing and return the fixture dataset
// keyed by the dataset variant, falling back to the entrypoint remainder when
// the source names no variant. The context cancels an in-flight remote fetch.
func (f *Fetcher) Fetch(ctx context.Context, entrypoint, datasetVariant string) (Payload, error) {
	scheme, rest, err := ResolveScheme(entrypoint)
	if err != nil {
		return Payload{}, err
	}

	switch scheme {
	case SchemeFixture:
		key := datasetVariant
		if key == "" {
			key = rest
		}
		return FixturePayload(key), nil
	case SchemeFile:
		raw, err := os.ReadFile(rest)
		if err != nil {
			return Payload{}, fmt.Errorf("read entrypoint file: %w", err)
		}
		return Parse(raw, ResolveVariant(datasetVariant))
	case SchemeHTTP:
		raw, err := f.fetchRemote(ctx, rest)
		if err != nil {
			return Payload{}, err
		}
		return Parse(raw, ResolveVariant(datasetVariant))
	}
	return Payload{}, fmt.Errorf("unsupported entrypoint scheme: %q", entrypoint)
}

func (f *Fetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}
	return body, nil
}
