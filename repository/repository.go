// Package repository implements the pull/download wire protocols and the
// mirror-ordered-fallback policy a repository's config entry carries.
package repository

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/manifest"
)

// Fetcher abstracts the network client: given a URL, return the response
// body as a stream. The default implementation wraps net/http; callers
// (tests, alternate transports) may substitute their own.
type Fetcher interface {
	Fetch(url string) (io.ReadCloser, error)
}

// httpFetcher is the default Fetcher, a thin net/http.Get wrapper that
// follows redirects (the stdlib default client policy) and fails on any
// non-2xx status.
type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns the default Fetcher, backed by http.DefaultClient.
func NewHTTPFetcher() Fetcher {
	return &httpFetcher{client: http.DefaultClient}
}

func (f *httpFetcher) Fetch(url string) (io.ReadCloser, error) {
	resp, err := f.client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Warning is emitted once per failed mirror other than the last one tried.
// When every mirror fails, the last failure is returned as a wrapped error,
// not as a Warning.
type Warning struct {
	Mirror string
	Cause  error
}

func (w *Warning) Error() string {
	return errors.Wrapf(w.Cause, "mirror %s", w.Mirror).Error()
}

// Mirror tries each of mirrors in order, fetching route and handing the
// response body to consume. A transport error and a consume failure (a
// mirror answering 200 with a body that doesn't parse) both count as that
// mirror failing: a warning is emitted and the next mirror is tried. Only
// when every mirror has failed is the last failure returned.
func Mirror(mirrors []string, route string, fetcher Fetcher, consume func(io.Reader) error, onWarning func(*Warning)) error {
	if len(mirrors) == 0 {
		return errors.New("repository has no configured mirrors")
	}

	var lastErr error
	for i, m := range mirrors {
		err := tryMirror(m+route, fetcher, consume)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < len(mirrors)-1 && onWarning != nil {
			onWarning(&Warning{Mirror: m, Cause: err})
		}
	}
	return errors.Wrap(lastErr, "all mirrors failed")
}

func tryMirror(url string, fetcher Fetcher, consume func(io.Reader) error) error {
	body, err := fetcher.Fetch(url)
	if err != nil {
		return err
	}
	defer body.Close()
	return consume(body)
}

// Pull fetches the `/pull` route from the first mirror that answers with a
// parseable JSON array of manifest.PackageManifest (a mirror serving
// malformed JSON is skipped with a warning, like one that is down), erases
// repo's subtree of the available cache, then writes every version of
// every manifest back in. onWarning is called once per mirror failure that
// wasn't the last attempted.
func Pull(repo identifier.RepositoryName, mirrors []string, fetcher Fetcher, cache *available.Cache, onWarning func(*Warning)) error {
	var manifests []manifest.PackageManifest
	err := Mirror(mirrors, "/pull", fetcher, func(body io.Reader) error {
		var decoded []manifest.PackageManifest
		if err := json.NewDecoder(body).Decode(&decoded); err != nil {
			return errors.Wrap(err, "decoding pull response")
		}
		manifests = decoded
		return nil
	}, onWarning)
	if err != nil {
		return errors.Wrapf(err, "pulling repository %s", repo)
	}

	if err := cache.EraseRepository(repo); err != nil {
		return err
	}

	for _, pm := range manifests {
		for verStr := range pm.Versions {
			v, err := identifier.ParseVersion(verStr)
			if err != nil {
				return errors.Wrapf(err, "version %q of %s/%s in repository %s", verStr, pm.Category, pm.Name, repo)
			}
			m, ok := pm.Version(v)
			if !ok {
				continue
			}
			if err := cache.Update(repo, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// DownloadURL builds the archive download route for id on a mirror.
func DownloadURL(mirror string, id identifier.PackageID) string {
	return mirror + "/api/p/" + string(id.Category) + "/" + string(id.Name) + "/" + id.Version.String() + "/download"
}

// Download fetches id's archive from the first working mirror and streams
// it into the downloaded cache.
func Download(id identifier.PackageID, mirrors []string, fetcher Fetcher, store func(io.Reader) error, onWarning func(*Warning)) error {
	if len(mirrors) == 0 {
		return errors.Errorf("no configured mirrors for %s", id.Repository)
	}

	var lastErr error
	for i, m := range mirrors {
		body, err := fetcher.Fetch(DownloadURL(m, id))
		if err != nil {
			lastErr = err
			if i < len(mirrors)-1 && onWarning != nil {
				onWarning(&Warning{Mirror: m, Cause: err})
			}
			continue
		}
		err = store(body)
		body.Close()
		if err != nil {
			return errors.Wrapf(err, "storing downloaded archive for %s", id)
		}
		return nil
	}
	return errors.Wrapf(lastErr, "downloading %s: all mirrors failed", id)
}
