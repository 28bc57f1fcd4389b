// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package command implements the modfold CLI command tree.
package command

import (
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/modfold/modfold/pkg/project"
	"github.com/modfold/modfold/pkg/version"
)

type Globals struct {
	Verbose     bool        `short:"V" name:"verbose" help:"Make the operation more talkative"`
	Version     VersionFlag `short:"v" name:"version" help:"Show version number and quit"`
	ProjectsDir string      `name:"projects-dir" default:"." help:"Set the path to the projects root"`
}

func (g *Globals) Manager() *project.Manager {
	return project.NewManager(g.ProjectsDir)
}

type VersionFlag bool

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(version.GetVersionString())
	app.Exit(0)
	return nil
}

var (
	ErrArgRequired = errors.New("arg required")
)
