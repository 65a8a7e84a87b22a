package npf_test

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest/npf"
)

func buildArchive(t *testing.T, manifestTOML string, data []byte, instructions []byte) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)

	addFile := func(name string, content []byte) {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}

	addFile("manifest.toml", []byte(manifestTOML))
	if data != nil {
		addFile("data.tar.gz", data)
	}
	if instructions != nil {
		addFile("instructions.sh", instructions)
	}

	require.NoError(t, tw.Close())
	return buf
}

const sampleManifest = `
name = "foo"
category = "sys-apps"
version = "1.0.0"
kind = "effective"

[metadata]
description = "a test package"
`

func TestExploreExtractsManifestAndFlags(t *testing.T) {
	buf := buildArchive(t, sampleManifest, []byte("fake-tar-gz-bytes"), []byte("#!/bin/sh\necho hi\n"))

	ex, err := npf.Explore(buf)
	require.NoError(t, err)
	defer ex.Close()

	require.Equal(t, "foo", string(ex.Manifest().Name))
	require.True(t, ex.HasData())
	require.True(t, ex.HasInstructions())

	r, err := ex.DataReader()
	require.NoError(t, err)
	defer r.Close()

	src, found, err := ex.InstructionsSource()
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, src, "echo hi")
}

func TestExploreWithoutDataOrInstructions(t *testing.T) {
	buf := buildArchive(t, sampleManifest, nil, nil)

	ex, err := npf.Explore(buf)
	require.NoError(t, err)
	defer ex.Close()

	require.False(t, ex.HasData())
	require.False(t, ex.HasInstructions())

	_, err = ex.DataReader()
	require.Error(t, err)

	_, found, err := ex.InstructionsSource()
	require.NoError(t, err)
	require.False(t, found)
}

func TestExploreMissingManifestFails(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	require.NoError(t, tw.Close())

	_, err := npf.Explore(buf)
	require.Error(t, err)

	var npfErr *npf.Error
	require.ErrorAs(t, err, &npfErr)
	require.Equal(t, npf.MissingManifest, npfErr.Kind)
}

func TestExploreInvalidManifestFails(t *testing.T) {
	buf := buildArchive(t, "not valid toml {{{", nil, nil)

	_, err := npf.Explore(buf)
	require.Error(t, err)

	var npfErr *npf.Error
	require.ErrorAs(t, err, &npfErr)
	require.Equal(t, npf.InvalidManifest, npfErr.Kind)
}

func TestCloseIsIdempotent(t *testing.T) {
	buf := buildArchive(t, sampleManifest, nil, nil)

	ex, err := npf.Explore(buf)
	require.NoError(t, err)

	require.NoError(t, ex.Close())
	require.NoError(t, ex.Close())
}
