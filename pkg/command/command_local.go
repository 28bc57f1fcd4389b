// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/modfold/modfold/modules/structdiff"
	"github.com/modfold/modfold/pkg/transport"
)

// Login seals the contributor's credentials on this machine.
type Login struct {
	Email     string `arg:"" name:"email" help:"Account email"`
	AccessKey string `arg:"" optional:"" name:"access-key" help:"Access key; prompted without echo when omitted"`
}

func (c *Login) Run(g *Globals) error {
	accessKey := c.AccessKey
	if accessKey == "" {
		fmt.Fprint(os.Stderr, "Access key: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		accessKey = strings.TrimSpace(string(raw))
	}
	if accessKey == "" {
		return fmt.Errorf("%w: access-key", ErrArgRequired)
	}
	return transport.SaveCredentials(c.Email, accessKey)
}

// AccessKey prints where to obtain an access key for the server.
type AccessKey struct {
	Server string `arg:"" name:"server" help:"Exchange server URL"`
}

func (c *AccessKey) Run(g *Globals) error {
	fmt.Printf("%s/access_key\n", strings.TrimSuffix(c.Server, "/"))
	return nil
}

// Pending lists mods waiting to be folded.
type Pending struct {
	MapID string `arg:"" name:"map-id" help:"Project id"`
}

func (c *Pending) Run(g *Globals) error {
	pending, err := g.Manager().ListPending(c.MapID)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(pending, "\n"))
	return nil
}

// Gen turns an edited temp copy of the map into an unregistered mod.
type Gen struct {
	MapID    string `arg:"" name:"map-id" help:"Project id"`
	Original string `arg:"" name:"original" help:"Map file name"`
	Temp     string `arg:"" name:"temp" help:"Edited copy, removed on success"`
	Comment  string `arg:"" name:"comment" help:"Mod comment"`
}

func (c *Gen) Run(g *Globals) error {
	return g.Manager().GenMod(c.MapID, c.Original, c.Temp, c.Comment)
}

// View prints the minimal whole-object view of a stored mod.
type View struct {
	MapID    string `arg:"" name:"map-id" help:"Project id"`
	Original string `arg:"" name:"original" help:"Map file name"`
	ModID    string `arg:"" name:"mod-id" help:"Mod artifact name"`
	Config   string `arg:"" name:"config" type:"existingfile" help:"Divider/key config file"`
}

func (c *View) Run(g *Globals) error {
	config, err := os.ReadFile(c.Config)
	if err != nil {
		return err
	}
	view, err := g.Manager().ViewMod(c.MapID, c.Original, c.ModID, string(config))
	if err != nil {
		return err
	}
	fmt.Println(view)
	return nil
}

// Fold merges a pending mod into the super-mod, or prints both sides of a
// conflict separated by the IO sentinel.
type Fold struct {
	MapID    string `arg:"" name:"map-id" help:"Project id"`
	Original string `arg:"" name:"original" help:"Map file name"`
	ModID    string `arg:"" name:"mod-id" help:"Pending mod id"`
	Config   string `arg:"" name:"config" type:"existingfile" help:"Divider/key config file"`
}

func (c *Fold) Run(g *Globals) error {
	config, err := os.ReadFile(c.Config)
	if err != nil {
		return err
	}
	result, err := g.Manager().TryFold(c.MapID, c.Original, c.ModID, string(config))
	if err != nil {
		return err
	}
	if !result.Folded {
		fmt.Printf("%s\n%s\n%s\n", result.ConflictLeft, structdiff.IOSeparator, result.ConflictRight)
		return nil
	}
	fmt.Println("ok")
	return nil
}

// Amend rebuilds a conflicting mod's diff from reworked contents on stdin.
type Amend struct {
	MapID    string `arg:"" name:"map-id" help:"Project id"`
	Original string `arg:"" name:"original" help:"Map file name"`
	ModID    string `arg:"" name:"mod-id" help:"Pending mod id"`
	Comment  string `arg:"" name:"comment" help:"Amendment comment"`
}

func (c *Amend) Run(g *Globals) error {
	contents, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return g.Manager().AmendMod(c.MapID, c.Original, c.ModID, c.Comment, contents)
}

// Skip marks a pending mod handled without folding it.
type Skip struct {
	MapID string `arg:"" name:"map-id" help:"Project id"`
	ModID string `arg:"" name:"mod-id" help:"Pending mod id"`
}

func (c *Skip) Run(g *Globals) error {
	return g.Manager().SkipMod(c.MapID, c.ModID)
}
