// This file boots the NeoFS coordinator process.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package main

import (
	"net/http"
	"os"

	"neofs/coordinator"

	"github.com/golang/glog"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "coordinator"
	app.Usage = "NeoFS metadata coordinator"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to the coordinator's JSON config file", Required: true},
		cli.StringFlag{Name: "addr", Value: ":4000", Usage: "listen address"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		glog.Exitf("coordinator: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := coordinator.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	co := coordinator.New(cfg)
	if err := co.Run(); err != nil {
		return err
	}
	defer co.Shutdown()

	addr := c.String("addr")
	glog.Infof("coordinator listening on %s", addr)
	return http.ListenAndServe(addr, co.Handler())
}
