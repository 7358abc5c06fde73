// Package coordinator wires the metadata catalog, liveness tracker, and
// re-replication engine to the §6 HTTP/JSON control plane.
/*
 * Copyright (c) 2024, NeoFS Authors. All rights reserved.
 */
package coordinator

import (
	"os"
	"strconv"

	"neofs/cmn"

	"github.com/pkg/errors"
)

// NodeConfig is one entry of the config file's "nodes" array (§6).
type NodeConfig struct {
	Port int `json:"port"`
}

// Config is the coordinator's one JSON config file, read once at startup
// (§6: "Configuration file"). It supplies the static roster. The
// replication_factor field is validated on load but not used afterwards:
// every upload request carries its own replication factor.
type Config struct {
	ReplicationFactor int          `json:"replication_factor"`
	Nodes             []NodeConfig `json:"nodes"`
}

// LoadConfig reads and parses the config file at path. It is the only
// configuration layering this process does — no env vars, no hot reload
// (§2.1).
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	var cfg Config
	if err := cmn.JSON.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}
	if cfg.ReplicationFactor < 1 {
		return nil, errors.Errorf("config %q: replication_factor must be >= 1", path)
	}
	if len(cfg.Nodes) == 0 {
		return nil, errors.Errorf("config %q: nodes must be non-empty", path)
	}
	return &cfg, nil
}

// Roster returns the node roster as "host:port" endpoint strings, localhost
// by convention since storage nodes in this design run on the same host the
// config names a port for.
func (c *Config) Roster() []string {
	out := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		out[i] = portToEndpoint(n.Port)
	}
	return out
}

func portToEndpoint(port int) string {
	return "127.0.0.1:" + strconv.Itoa(port)
}
