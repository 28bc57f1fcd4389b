// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package project manages the on-disk layout of a shared modding project:
// the map file itself plus a mods directory holding the cumulative super-mod
// and the per-contributor diff artifacts in their lifecycle states.
package project

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/modfold/modfold/modules/crc"
	"github.com/modfold/modfold/modules/structdiff"
	"github.com/modfold/modfold/modules/trace"
	"github.com/modfold/modfold/modules/vfs"
)

const (
	modsDir            = "mods"
	superModName       = "SUPER_MOD"
	pendingPrefix      = "pending_"
	patchedPrefix      = "patched_"
	amendedPrefix      = "amended_"
	unregisteredPrefix = "UNREGISTERED_"

	tempPatchedName = "temp_patched"
)

var (
	ErrProjectExists  = errors.New("project already exists")
	ErrPendingMissing = errors.New("pending mod not found")
	ErrInvalidModName = errors.New("invalid mod name")
)

// Manager drives one projects root. Every project lives in its own
// subdirectory named by its server-assigned id.
type Manager struct {
	fs vfs.VFS
}

func NewManager(projectsDir string) *Manager {
	return &Manager{fs: vfs.NewVFS(projectsDir)}
}

// NewProject creates the directory skeleton for a freshly registered id.
func (m *Manager) NewProject(id string) error {
	if m.fs.Exists(id) {
		return ErrProjectExists
	}
	return m.fs.MkdirAll(path.Join(id, modsDir))
}

// listMods returns the id suffixes of every mod artifact carrying prefix.
func (m *Manager) listMods(mapID, prefix string) ([]string, error) {
	entries, err := m.fs.ReadDir(path.Join(mapID, modsDir))
	if err != nil {
		return nil, err
	}
	suffixes := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		_, suffix, ok := strings.Cut(name, "_")
		if !ok || suffix == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidModName, name)
		}
		suffixes = append(suffixes, suffix)
	}
	return suffixes, nil
}

func (m *Manager) maxModID(mapID string) (uint64, error) {
	suffixes, err := m.listMods(mapID, unregisteredPrefix)
	if err != nil {
		return 0, err
	}
	var maxID uint64
	for _, s := range suffixes {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidModName, s)
		}
		maxID = max(maxID, id)
	}
	return maxID, nil
}

// ListPending returns the ids of pending mods that have not been folded or
// skipped yet.
func (m *Manager) ListPending(mapID string) ([]string, error) {
	pending, err := m.listMods(mapID, pendingPrefix)
	if err != nil {
		return nil, err
	}
	patched, err := m.listMods(mapID, patchedPrefix)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(patched))
	for _, p := range patched {
		done[p] = true
	}
	still := make([]string, 0, len(pending))
	for _, p := range pending {
		if !done[p] {
			still = append(still, p)
		}
	}
	return still, nil
}

// GenMod builds a structural diff from the map file and an edited temp copy,
// stores it as the next unregistered mod and deletes the temp copy. The
// comment is sanitized here; the engine itself stores it verbatim.
func (m *Manager) GenMod(mapID, original, temp, comment string) error {
	source, err := m.fs.Read(path.Join(mapID, original))
	if err != nil {
		return err
	}
	modded, err := m.fs.Read(path.Join(mapID, temp))
	if err != nil {
		return err
	}
	maxID, err := m.maxModID(mapID)
	if err != nil {
		return err
	}
	diff, err := structdiff.BuildFrom(source, modded, SanitizeComment(comment))
	if err != nil {
		return err
	}
	data, err := diff.Marshal()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s%d", unregisteredPrefix, maxID+1)
	trace.DbgPrint("gen-mod %s/%s: %d changes", mapID, name, len(diff.Changes))
	if err := m.fs.Write(path.Join(mapID, modsDir, name), string(data)); err != nil {
		return err
	}
	return m.fs.Remove(path.Join(mapID, temp))
}

// SanitizeComment strips the IO separator out of user comments before they
// enter the engine.
func SanitizeComment(comment string) string {
	return strings.ReplaceAll(comment, structdiff.IOSeparator, structdiff.Sanitized)
}

func (m *Manager) loadStructure(mapID, original, configJSON string) (*structdiff.Structure, error) {
	source, err := m.fs.Read(path.Join(mapID, original))
	if err != nil {
		return nil, err
	}
	config, err := structdiff.ParseConfig([]byte(configJSON))
	if err != nil {
		return nil, err
	}
	return structdiff.NewStructure(source, config)
}

func (m *Manager) loadMod(mapID, name string) (*structdiff.StructDiff, error) {
	data, err := m.fs.Read(path.Join(mapID, modsDir, name))
	if err != nil {
		return nil, err
	}
	return structdiff.ParseStructDiff([]byte(data))
}

// ViewMod forward-inflates a stored mod against the map file, producing the
// minimal whole-object view of the modification.
func (m *Manager) ViewMod(mapID, original, modID, configJSON string) (string, error) {
	structure, err := m.loadStructure(mapID, original, configJSON)
	if err != nil {
		return "", err
	}
	diff, err := m.loadMod(mapID, modID)
	if err != nil {
		return "", err
	}
	inflated, err := structure.ForwardInflate(diff)
	if err != nil {
		return "", err
	}
	return inflated.Text(), nil
}

// FoldResult reports one TryFold outcome: either the mod folded into the
// super-mod, or the two conflicting inflated views.
type FoldResult struct {
	Folded        bool
	ConflictLeft  string
	ConflictRight string
}

// TryFold checks the selected pending (or amended, when present) mod against
// the super-mod. Compatible mods extend the super-mod and are marked
// patched; colliding mods yield the conflicting object views for the
// contributor to reconcile.
func (m *Manager) TryFold(mapID, original, modID, configJSON string) (*FoldResult, error) {
	superPath := path.Join(mapID, modsDir, superModName)
	pendingPath := path.Join(mapID, modsDir, pendingPrefix+modID)
	patchedPath := path.Join(mapID, modsDir, patchedPrefix+modID)
	if !m.fs.Exists(superPath) {
		// First fold seeds the super-mod with the mod itself.
		if _, err := m.fs.Copy(superPath, pendingPath); err != nil {
			return nil, err
		}
		if _, err := m.fs.Copy(patchedPath, pendingPath); err != nil {
			return nil, err
		}
		return &FoldResult{Folded: true}, nil
	}
	modName := pendingPrefix + modID
	if m.fs.Exists(path.Join(mapID, modsDir, amendedPrefix+modID)) {
		modName = amendedPrefix + modID
	}
	structure, err := m.loadStructure(mapID, original, configJSON)
	if err != nil {
		return nil, err
	}
	superMod, err := m.loadMod(mapID, superModName)
	if err != nil {
		return nil, err
	}
	modded, err := m.loadMod(mapID, modName)
	if err != nil {
		return nil, err
	}
	left, right, err := structure.Conflicts(superMod, modded)
	if err != nil {
		return nil, err
	}
	if left != nil {
		trace.DbgPrint("fold %s/%s: conflict", mapID, modName)
		return &FoldResult{
			ConflictLeft:  left.Text(),
			ConflictRight: right.Text(),
		}, nil
	}
	if err := superMod.Extend(modded); err != nil {
		return nil, err
	}
	data, err := superMod.Marshal()
	if err != nil {
		return nil, err
	}
	if err := m.fs.Write(superPath, string(data)); err != nil {
		return nil, err
	}
	if _, err := m.fs.Copy(patchedPath, path.Join(mapID, modsDir, modName)); err != nil {
		return nil, err
	}
	return &FoldResult{Folded: true}, nil
}

// AmendMod rebuilds the selected mod's diff from reworked contents, keeping
// the pending artifact untouched so the amendment can be folded instead.
func (m *Manager) AmendMod(mapID, original, modID, comment string, newContents []byte) error {
	source, err := m.fs.Read(path.Join(mapID, original))
	if err != nil {
		return err
	}
	diff, err := structdiff.BuildFrom(source, string(newContents), SanitizeComment(comment))
	if err != nil {
		return err
	}
	data, err := diff.Marshal()
	if err != nil {
		return err
	}
	return m.fs.Write(path.Join(mapID, modsDir, amendedPrefix+modID), string(data))
}

// SkipMod marks a pending mod as handled without folding it.
func (m *Manager) SkipMod(mapID, modID string) error {
	if !m.fs.Exists(path.Join(mapID, modsDir, pendingPrefix+modID)) {
		return ErrPendingMissing
	}
	return m.fs.Write(path.Join(mapID, modsDir, patchedPrefix+modID), "")
}

// MapChecksum hashes the map file for the server's staleness check.
func (m *Manager) MapChecksum(mapID, mapName string) (uint32, error) {
	contents, err := m.fs.Read(path.Join(mapID, mapName))
	if err != nil {
		return 0, err
	}
	return crc.Sum32([]byte(contents)), nil
}

// UpdateFrom unpacks a fetched project bundle into the project directory.
func (m *Manager) UpdateFrom(mapID string, bundle []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return fmt.Errorf("unsafe bundle entry %q", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
		if err := m.fs.Write(path.Join(mapID, name), string(content)); err != nil {
			return err
		}
	}
	return nil
}

// UnregisteredModPaths lists the mods generated locally but not submitted
// yet, relative to the projects root.
func (m *Manager) UnregisteredModPaths(mapID string) ([]string, error) {
	suffixes, err := m.listMods(mapID, unregisteredPrefix)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		paths = append(paths, path.Join(mapID, modsDir, unregisteredPrefix+s))
	}
	return paths, nil
}

// UnsubmittedPatched lists the mods folded locally whose patched state the
// server has not seen yet.
func (m *Manager) UnsubmittedPatched(mapID string) ([]string, error) {
	pending, err := m.listMods(mapID, pendingPrefix)
	if err != nil {
		return nil, err
	}
	patched, err := m.listMods(mapID, patchedPrefix)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(patched))
	for _, p := range patched {
		done[p] = true
	}
	out := make([]string, 0, len(pending))
	for _, p := range pending {
		if done[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

// TempPatched applies the super-mod to the map file and stores the result
// beside it, returning the temp file's path relative to the projects root.
func (m *Manager) TempPatched(mapID, mapName string) (string, error) {
	source, err := m.fs.Read(path.Join(mapID, mapName))
	if err != nil {
		return "", err
	}
	superMod, err := m.loadMod(mapID, superModName)
	if err != nil {
		return "", err
	}
	patched, err := superMod.PatchText(source)
	if err != nil {
		return "", err
	}
	tempPath := path.Join(mapID, tempPatchedName)
	if err := m.fs.Write(tempPath, patched); err != nil {
		return "", err
	}
	return tempPath, nil
}

// PatchMap replaces the map file with the previously staged patched copy.
func (m *Manager) PatchMap(mapID, mapName string) error {
	return m.fs.Rename(path.Join(mapID, tempPatchedName), path.Join(mapID, mapName))
}

// RegisterMods renames locally generated mods to the ids the server
// registered them under.
func (m *Manager) RegisterMods(mapID string, idChanges map[string]string) error {
	for oldName, newName := range idChanges {
		from := path.Join(mapID, modsDir, path.Base(oldName))
		to := path.Join(mapID, modsDir, path.Base(newName))
		if err := m.fs.Rename(from, to); err != nil {
			return err
		}
	}
	return nil
}

// ReadRel reads a path relative to the projects root.
func (m *Manager) ReadRel(rel string) (string, error) {
	return m.fs.Read(rel)
}
