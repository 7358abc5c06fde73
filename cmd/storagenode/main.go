// This file boots a NeoFS storage-node process.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"neofs/storagenode"

	"github.com/golang/glog"
	"github.com/urfave/cli"
)

const heartbeatPeriod = 1 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "storagenode"
	app.Usage = "NeoFS storage node"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr", Value: ":5001", Usage: "listen address"},
		cli.StringFlag{Name: "storage-dir", Usage: "directory blocks are written under", Required: true},
		cli.StringFlag{Name: "coordinator", Value: "http://127.0.0.1:4000", Usage: "coordinator address"},
		cli.StringFlag{Name: "id", Usage: "endpoint this node reports in heartbeats (defaults to --addr's port on localhost)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		glog.Exitf("storagenode: %v", err)
	}
}

func run(c *cli.Context) error {
	addr := c.String("addr")
	coordinator := stripScheme(c.String("coordinator"))
	endpoint := c.String("id")
	if endpoint == "" {
		endpoint = "127.0.0.1" + addr
	}

	store, err := storagenode.NewStore(c.String("storage-dir"))
	if err != nil {
		return err
	}

	node := storagenode.NewNode(endpoint, coordinator, store)
	if err := node.Run(heartbeatPeriod); err != nil {
		return err
	}
	defer node.Shutdown()

	glog.Infof("storage node %s listening on %s, coordinator %s", endpoint, addr, coordinator)
	return http.ListenAndServe(addr, node.Handler())
}

// stripScheme drops a leading "http://"/"https://" from a coordinator
// address flag, since transport.Client prepends its own scheme.
func stripScheme(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	return addr
}
