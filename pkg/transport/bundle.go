// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"

	"github.com/modfold/modfold/pkg/protocol"
)

// ModFile is one mod artifact staged for submission.
type ModFile struct {
	Name string
	Data []byte
}

// Digest hashes a mod payload for the submission manifest.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BuildModsBundle zips unregistered mods together with a manifest of their
// blake3 digests. The server refuses a bundle whose entries do not match the
// manifest.
func BuildModsBundle(files []ModFile) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	manifest := protocol.ModManifest{Digests: make(map[string]string, len(files))}
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, err
		}
		manifest.Digests[f.Name] = Digest(f.Data)
	}
	w, err := zw.Create(protocol.ManifestName)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(w).Encode(&manifest); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPatchBundle zips the patched map alongside the ids that became
// patched, the payload of a submit-patches call.
func BuildPatchBundle(mapContents []byte, patched []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("map_file")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(mapContents); err != nil {
		return nil, err
	}
	w, err = zw.Create("changes.json")
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(w).Encode(&protocol.Patches{Patched: patched}); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
