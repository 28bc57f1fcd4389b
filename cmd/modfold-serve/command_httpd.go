// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/modfold/modfold/pkg/serve"
)

type HTTPD struct {
	Config string `short:"c" name:"config" help:"Location of server config file" default:"/etc/modfold/modfold-serve.toml" type:"path"`
}

func (c *HTTPD) Run(globals *Globals) error {
	sc, err := serve.NewServerConfig(c.Config)
	if err != nil {
		logrus.Errorf("modfold-serve httpd load server config error: %v", err)
		return err
	}
	srv, err := serve.NewServer(sc)
	if err != nil {
		logrus.Errorf("modfold-serve httpd new server error: %v", err)
		return err
	}
	go listenSignal(srv)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Errorf("modfold-serve httpd listen error: %v", err)
		return err
	}
	logrus.Infof("modfold-serve httpd exited")
	return nil
}

func listenSignal(srv *serve.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
