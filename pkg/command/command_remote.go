// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/modfold/modfold/pkg/transport"
)

// Projects lists the projects visible on the server.
type Projects struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
}

func (c *Projects) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	projects, err := client.ListProjects(context.Background())
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(projects))
	for id := range projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s\t%s\n", id, projects[id])
	}
	return nil
}

// Create registers a new project remotely and locally.
type Create struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
}

func (c *Create) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	id, err := client.CreateProject(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(id)
	return g.Manager().NewProject(id)
}

// Delete removes a project from the server.
type Delete struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Delete) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	return client.DeleteProject(context.Background(), c.MapID)
}

// Status reports whether the project accepts mods.
type Status struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Status) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	status, err := client.GetStatus(context.Background(), c.MapID)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

// Open opens the project for mod submissions.
type Open struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Open) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	return client.TryOpen(context.Background(), c.MapID)
}

// Close closes the project for mod submissions.
type Close struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Close) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	return client.TryClose(context.Background(), c.MapID)
}

// Check compares the local map checksum with the server's copy.
type Check struct {
	Server  string `arg:"" name:"server" help:"Exchange server URL"`
	MapID   string `arg:"" name:"map-id" help:"Project id"`
	MapName string `arg:"" name:"map-name" help:"Map file name"`
}

func (c *Check) Run(g *Globals) error {
	sum, err := g.Manager().MapChecksum(c.MapID, c.MapName)
	if err != nil {
		return err
	}
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	upToDate, err := client.CheckUpToDate(context.Background(), c.MapID, sum)
	if err != nil {
		return err
	}
	if !upToDate {
		fmt.Println("Checksum mismatch")
		return nil
	}
	fmt.Println("ok")
	return nil
}

// SubmitMap uploads a fresh map file.
type SubmitMap struct {
	Server   string `arg:"" name:"server" help:"Exchange server URL"`
	MapID    string `arg:"" name:"map-id" help:"Project id"`
	FileName string `arg:"" name:"file-name" help:"Map file name inside the project"`
}

func (c *SubmitMap) Run(g *Globals) error {
	m := g.Manager()
	contents, err := m.ReadRel(path.Join(c.MapID, c.FileName))
	if err != nil {
		return err
	}
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	return client.SubmitMap(context.Background(), c.MapID, c.FileName, []byte(contents))
}

// Sync downloads the project bundle and unpacks it locally.
type Sync struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Sync) Run(g *Globals) error {
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	bundle, err := client.FetchProject(context.Background(), c.MapID)
	if err != nil {
		return err
	}
	return g.Manager().UpdateFrom(c.MapID, bundle)
}

// SubmitMods uploads the locally generated mods and renames them to their
// registered ids.
type SubmitMods struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
	MapID  string `arg:"" name:"map-id" help:"Project id"`
}

func (c *SubmitMods) Run(g *Globals) error {
	m := g.Manager()
	paths, err := m.UnregisteredModPaths(c.MapID)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to submit")
		return nil
	}
	files := make([]transport.ModFile, 0, len(paths))
	for _, p := range paths {
		data, err := m.ReadRel(p)
		if err != nil {
			return err
		}
		files = append(files, transport.ModFile{Name: path.Base(p), Data: []byte(data)})
	}
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	idChanges, err := client.SubmitMods(context.Background(), c.MapID, files)
	if err != nil {
		return err
	}
	return m.RegisterMods(c.MapID, idChanges)
}

// SubmitPatches uploads the super-mod-patched map together with the ids it
// settles, then installs the patched map locally.
type SubmitPatches struct {
	Server  string `arg:"" name:"server" help:"Exchange server URL"`
	MapID   string `arg:"" name:"map-id" help:"Project id"`
	MapName string `arg:"" name:"map-name" help:"Map file name"`
}

func (c *SubmitPatches) Run(g *Globals) error {
	m := g.Manager()
	tempPath, err := m.TempPatched(c.MapID, c.MapName)
	if err != nil {
		return err
	}
	patchedContents, err := m.ReadRel(tempPath)
	if err != nil {
		return err
	}
	suffixes, err := m.UnsubmittedPatched(c.MapID)
	if err != nil {
		return err
	}
	patched := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		patched = append(patched, "pending_"+s)
	}
	client, err := transport.NewClient(c.Server)
	if err != nil {
		return err
	}
	if err := client.SubmitPatches(context.Background(), c.MapID, []byte(patchedContents), patched); err != nil {
		return err
	}
	return m.PatchMap(c.MapID, c.MapName)
}
