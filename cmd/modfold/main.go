// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/modfold/modfold/modules/trace"
	"github.com/modfold/modfold/pkg/command"
	"github.com/modfold/modfold/pkg/version"
)

type App struct {
	command.Globals
	Login         command.Login         `cmd:"" name:"login" help:"Save exchange server credentials on this machine"`
	AccessKey     command.AccessKey     `cmd:"" name:"access-key" help:"Show where to obtain an access key"`
	Pending       command.Pending       `cmd:"" name:"pending" help:"List mods waiting to be folded"`
	Gen           command.Gen           `cmd:"" name:"gen" help:"Turn an edited map copy into a mod"`
	View          command.View          `cmd:"" name:"view" help:"Show the object-level view of a stored mod"`
	Fold          command.Fold          `cmd:"" name:"fold" help:"Merge a pending mod into the super-mod"`
	Amend         command.Amend         `cmd:"" name:"amend" help:"Rework a conflicting mod from stdin contents"`
	Skip          command.Skip          `cmd:"" name:"skip" help:"Mark a pending mod handled without folding"`
	Projects      command.Projects      `cmd:"" name:"projects" help:"List projects on the server"`
	Create        command.Create        `cmd:"" name:"create" help:"Register a new project"`
	Delete        command.Delete        `cmd:"" name:"delete" help:"Delete a project from the server"`
	Status        command.Status        `cmd:"" name:"status" help:"Show whether a project accepts mods"`
	Open          command.Open          `cmd:"" name:"open" help:"Open a project for mod submissions"`
	Close         command.Close         `cmd:"" name:"close" help:"Close a project for mod submissions"`
	Check         command.Check         `cmd:"" name:"check" help:"Compare the local map with the server copy"`
	SubmitMap     command.SubmitMap     `cmd:"" name:"submit-map" help:"Upload a fresh map file"`
	Sync          command.Sync          `cmd:"" name:"sync" help:"Download and unpack the project bundle"`
	SubmitMods    command.SubmitMods    `cmd:"" name:"submit-mods" help:"Upload locally generated mods"`
	SubmitPatches command.SubmitPatches `cmd:"" name:"submit-patches" help:"Upload the folded map and settle patched mods"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("modfold"),
		kong.Description("modfold - collaborative structural patching for line-oriented data files"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.GetVersionString(),
		},
	)
	now := time.Now()
	if app.Verbose {
		trace.EnableDebugMode()
	}
	err := ctx.Run(&app.Globals)
	if app.Verbose {
		trace.DbgPrint("time spent: %v", time.Since(now))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "modfold: %v\n", err)
		os.Exit(1)
	}
}
