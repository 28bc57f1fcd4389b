// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/modfold/modfold/modules/crc"
	"github.com/modfold/modfold/modules/streamio"
	"github.com/modfold/modfold/modules/vfs"
	"github.com/modfold/modfold/pkg/protocol"
	"github.com/modfold/modfold/pkg/transport"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"

	metaName       = "meta.json"
	mapArchiveName = "map.zst"
	modsDir        = "mods"
	pendingPrefix  = "pending_"
	patchedPrefix  = "patched_"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNotOwner        = errors.New("not the project owner")
	ErrDigestMismatch  = errors.New("mod digest mismatch")
)

// projectMeta is the server-side bookkeeping of one project.
type projectMeta struct {
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	Status    string `json:"status"`
	MapName   string `json:"map_name"`
	NextModID uint64 `json:"next_mod_id"`
}

// Store keeps every project on disk under one root. Map files are held
// zstd-compressed; mods are stored as the client submitted them.
type Store struct {
	fs vfs.VFS
}

func NewStore(root string) *Store {
	return &Store{fs: vfs.NewVFS(root)}
}

func newProjectID() string {
	var raw [8]byte
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}

func (s *Store) readMeta(mapID string) (*projectMeta, error) {
	data, err := s.fs.Read(path.Join(mapID, metaName))
	if err != nil {
		return nil, ErrProjectNotFound
	}
	var meta projectMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("corrupt project meta: %w", err)
	}
	return &meta, nil
}

func (s *Store) writeMeta(mapID string, meta *projectMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return s.fs.Write(path.Join(mapID, metaName), string(data))
}

// Create registers a fresh project owned by owner and returns its id.
func (s *Store) Create(owner string) (string, error) {
	id := newProjectID()
	if err := s.fs.MkdirAll(path.Join(id, modsDir)); err != nil {
		return "", err
	}
	meta := &projectMeta{
		Name:      id,
		Owner:     owner,
		Status:    StatusClosed,
		MapName:   "map.txt",
		NextModID: 1,
	}
	return id, s.writeMeta(id, meta)
}

// Delete removes a project; only its owner may.
func (s *Store) Delete(mapID, requester string) error {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return err
	}
	if meta.Owner != requester {
		return ErrNotOwner
	}
	if err := s.fs.Remove(path.Join(mapID, metaName)); err != nil {
		return err
	}
	entries, err := s.fs.ReadDir(path.Join(mapID, modsDir))
	if err == nil {
		for _, e := range entries {
			_ = s.fs.Remove(path.Join(mapID, modsDir, e.Name()))
		}
	}
	if s.fs.Exists(path.Join(mapID, mapArchiveName)) {
		_ = s.fs.Remove(path.Join(mapID, mapArchiveName))
	}
	return nil
}

// List returns id → name for every project on the server.
func (s *Store) List() (map[string]string, error) {
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, err
	}
	projects := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.readMeta(e.Name())
		if err != nil {
			continue
		}
		projects[e.Name()] = meta.Name
	}
	return projects, nil
}

// Status reports whether a project accepts mod submissions.
func (s *Store) Status(mapID string) (string, error) {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return "", err
	}
	return meta.Status, nil
}

// SetStatus opens or closes a project for submissions.
func (s *Store) SetStatus(mapID, status string) error {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return err
	}
	meta.Status = status
	return s.writeMeta(mapID, meta)
}

// UpdateMap replaces the project's map file.
func (s *Store) UpdateMap(mapID, name string, contents []byte) error {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return err
	}
	var compressed bytes.Buffer
	z := streamio.GetZstdWriter(&compressed)
	if _, err := z.Write(contents); err != nil {
		streamio.PutZstdWriter(z)
		return err
	}
	streamio.PutZstdWriter(z)
	if err := s.fs.Write(path.Join(mapID, mapArchiveName), compressed.String()); err != nil {
		return err
	}
	meta.MapName = name
	return s.writeMeta(mapID, meta)
}

// ReadMap returns the decompressed map file and its name.
func (s *Store) ReadMap(mapID string) (string, []byte, error) {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return "", nil, err
	}
	compressed, err := s.fs.Read(path.Join(mapID, mapArchiveName))
	if err != nil {
		return "", nil, fmt.Errorf("map file missing: %w", err)
	}
	z, err := streamio.GetZstdReader(strings.NewReader(compressed))
	if err != nil {
		return "", nil, err
	}
	defer streamio.PutZstdReader(z)
	contents, err := io.ReadAll(z)
	if err != nil {
		return "", nil, err
	}
	return meta.MapName, contents, nil
}

// Checksum hashes the current map file.
func (s *Store) Checksum(mapID string) (uint32, error) {
	_, contents, err := s.ReadMap(mapID)
	if err != nil {
		return 0, err
	}
	return crc.Sum32(contents), nil
}

// Bundle assembles the sync payload: the map file plus every registered mod
// artifact.
func (s *Store) Bundle(mapID string) ([]byte, error) {
	mapName, contents, err := s.ReadMap(mapID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(mapName)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(contents); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(path.Join(mapID, modsDir))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := s.fs.Read(path.Join(mapID, modsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(path.Join(modsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(data)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SubmitMods registers every mod in the bundle, verifying the manifest
// digests, and returns the name → registered-name mapping.
func (s *Store) SubmitMods(mapID string, bundle []byte) (map[string]string, error) {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte, len(zr.File))
	var manifest protocol.ModManifest
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		if f.Name == protocol.ManifestName {
			if err := json.Unmarshal(data, &manifest); err != nil {
				return nil, fmt.Errorf("bad submission manifest: %w", err)
			}
			continue
		}
		files[path.Clean(f.Name)] = data
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	idChanges := make(map[string]string, len(files))
	for _, name := range names {
		data := files[name]
		if want, ok := manifest.Digests[name]; !ok || transport.Digest(data) != want {
			return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, name)
		}
		registered := fmt.Sprintf("%s%d", pendingPrefix, meta.NextModID)
		meta.NextModID++
		if err := s.fs.Write(path.Join(mapID, modsDir, registered), string(data)); err != nil {
			return nil, err
		}
		idChanges[name] = registered
	}
	if err := s.writeMeta(mapID, meta); err != nil {
		return nil, err
	}
	return idChanges, nil
}

// ApplyPatches installs a patched map and marks the listed mods patched.
func (s *Store) ApplyPatches(mapID string, bundle []byte) error {
	meta, err := s.readMeta(mapID)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return err
	}
	var mapContents []byte
	var patches protocol.Patches
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
		switch f.Name {
		case "map_file":
			mapContents = data
		case "changes.json":
			if err := json.Unmarshal(data, &patches); err != nil {
				return fmt.Errorf("bad patch manifest: %w", err)
			}
		}
	}
	if mapContents == nil {
		return errors.New("patch bundle missing map_file")
	}
	if err := s.UpdateMap(mapID, meta.MapName, mapContents); err != nil {
		return err
	}
	for _, name := range patches.Patched {
		marker := strings.Replace(path.Clean(name), pendingPrefix, patchedPrefix, 1)
		if !strings.HasPrefix(marker, patchedPrefix) {
			marker = patchedPrefix + marker
		}
		if err := s.fs.Write(path.Join(mapID, modsDir, marker), ""); err != nil {
			return err
		}
	}
	return nil
}
