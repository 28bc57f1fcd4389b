// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/modfold/modfold/pkg/serve"
)

type Keygen struct {
	Config string        `short:"c" name:"config" help:"Location of server config file" default:"/etc/modfold/modfold-serve.toml" type:"path"`
	Email  string        `arg:"" name:"email" help:"Contributor email the key is minted for"`
	TTL    time.Duration `name:"ttl" default:"0" help:"Key lifetime; 0 never expires"`
}

func (c *Keygen) Run(globals *Globals) error {
	sc, err := serve.NewServerConfig(c.Config)
	if err != nil {
		return err
	}
	key, err := serve.MintAccessKey(sc.TokenSecret, c.Email, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
