// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/modfold/modfold/modules/trace"
	"github.com/modfold/modfold/pkg/version"
)

type Globals struct {
	Verbose bool `short:"V" name:"verbose" help:"Make the operation more talkative"`
}

type App struct {
	Globals
	HTTPD  HTTPD  `cmd:"" name:"httpd" help:"Start the modfold exchange server"`
	Keygen Keygen `cmd:"" name:"keygen" help:"Mint an access key for a contributor"`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("modfold-serve"),
		kong.Description("modfold-serve - exchange server for collaborative structural patching"),
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
		os.Exit(1)
	}
}
