// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/modfold/modfold/pkg/version"
)

const (
	DefaultReadTimeout  = 10 * time.Minute
	DefaultWriteTimeout = 10 * time.Minute
	DefaultIdleTimeout  = 5 * time.Minute
)

// Duration wraps time.Duration for TOML decoding.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type ServerConfig struct {
	Listen        string   `toml:"listen"`
	Projects      string   `toml:"projects"`
	TokenSecret   string   `toml:"token_secret"`
	IdleTimeout   Duration `toml:"idle_timeout,omitempty"`
	ReadTimeout   Duration `toml:"read_timeout,omitempty"`
	WriteTimeout  Duration `toml:"write_timeout,omitempty"`
	BannerVersion string   `toml:"banner_version,omitempty"`
}

// NewServerConfig loads the TOML server config from file, filling defaults.
func NewServerConfig(file string) (*ServerConfig, error) {
	sc := &ServerConfig{
		Listen:        "127.0.0.1:21020",
		IdleTimeout:   Duration{Duration: DefaultIdleTimeout},
		ReadTimeout:   Duration{Duration: DefaultReadTimeout},
		WriteTimeout:  Duration{Duration: DefaultWriteTimeout},
		BannerVersion: version.GetServerVersion(),
	}
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	if _, err := toml.NewDecoder(fd).Decode(sc); err != nil {
		return nil, err
	}
	if sc.Projects == "" {
		return nil, fmt.Errorf("server config %s: projects root not configured", file)
	}
	if sc.TokenSecret == "" {
		return nil, fmt.Errorf("server config %s: token_secret not configured", file)
	}
	return sc, nil
}
