package repository

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/identifier"
)

// fakeFetcher maps URLs to canned responses/errors, for exercising mirror
// fallback without a real network round-trip.
type fakeFetcher struct {
	responses map[string]string
	errors    map[string]error
}

func (f *fakeFetcher) Fetch(url string) (io.ReadCloser, error) {
	if err, ok := f.errors[url]; ok {
		return nil, err
	}
	if body, ok := f.responses[url]; ok {
		return ioutil.NopCloser(bytes.NewBufferString(body)), nil
	}
	return nil, assertUnreachable(url)
}

func assertUnreachable(url string) error {
	panic("unexpected fetch: " + url)
}

func TestMirrorFailsOverToNextOnError(t *testing.T) {
	f := &fakeFetcher{
		errors: map[string]error{
			"https://a/pull": io.ErrUnexpectedEOF,
		},
		responses: map[string]string{
			"https://b/pull": "ok",
		},
	}

	var warnings []*Warning
	var got string
	err := Mirror([]string{"https://a", "https://b"}, "/pull", f, func(body io.Reader) error {
		b, err := ioutil.ReadAll(body)
		got = string(b)
		return err
	}, func(w *Warning) {
		warnings = append(warnings, w)
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", got)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "https://a", warnings[0].Mirror)
}

func TestMirrorFailsOverWhenConsumeRejectsBody(t *testing.T) {
	f := &fakeFetcher{
		responses: map[string]string{
			"https://a/pull": "garbage",
			"https://b/pull": "ok",
		},
	}

	var warnings []*Warning
	err := Mirror([]string{"https://a", "https://b"}, "/pull", f, func(body io.Reader) error {
		b, err := ioutil.ReadAll(body)
		if err != nil {
			return err
		}
		if string(b) != "ok" {
			return io.ErrUnexpectedEOF
		}
		return nil
	}, func(w *Warning) {
		warnings = append(warnings, w)
	})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, "https://a", warnings[0].Mirror)
}

func TestMirrorFailsWhenAllMirrorsDown(t *testing.T) {
	f := &fakeFetcher{
		errors: map[string]error{
			"https://a/pull": io.ErrUnexpectedEOF,
			"https://b/pull": io.ErrUnexpectedEOF,
		},
	}

	err := Mirror([]string{"https://a", "https://b"}, "/pull", f, func(io.Reader) error {
		return nil
	}, func(*Warning) {})
	require.Error(t, err)
}

func TestPullErasesThenRepopulatesAvailableCache(t *testing.T) {
	dir := t.TempDir()
	cache := available.New(dir)

	repo, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)

	body := `[{"category":"sys","name":"hello","versions":{"1.0.0":{"kind":"effective"}}}]`
	f := &fakeFetcher{responses: map[string]string{
		"https://mirror/pull": body,
	}}

	err = Pull(repo, []string{"https://mirror"}, f, cache, func(*Warning) {})
	require.NoError(t, err)

	req, err := identifier.ParsePackageRequirement("hello")
	require.NoError(t, err)
	pkgs, err := cache.Query(req).Perform()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "1.0.0", pkgs[0].ID.Version.String())
}

func TestPullFailsOverOnMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	cache := available.New(dir)

	repo, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)

	valid := `[{"category":"sys","name":"hello","versions":{"1.0.0":{"kind":"effective"}}}]`
	f := &fakeFetcher{
		errors: map[string]error{
			"https://a/pull": io.ErrUnexpectedEOF,
		},
		responses: map[string]string{
			"https://b/pull": `[{"category":"sys","name":`,
			"https://c/pull": valid,
		},
	}

	var warnings []*Warning
	err = Pull(repo, []string{"https://a", "https://b", "https://c"}, f, cache, func(w *Warning) {
		warnings = append(warnings, w)
	})
	require.NoError(t, err)

	require.Len(t, warnings, 2)
	assert.Equal(t, "https://a", warnings[0].Mirror)
	assert.Equal(t, "https://b", warnings[1].Mirror)

	req, err := identifier.ParsePackageRequirement("hello")
	require.NoError(t, err)
	pkgs, err := cache.Query(req).Perform()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "1.0.0", pkgs[0].ID.Version.String())
}

func TestDownloadURLFormat(t *testing.T) {
	id, err := identifier.ParsePackageID("core::sys/hello#1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror/api/p/sys/hello/1.0.0/download", DownloadURL("https://mirror", id))
}
