// Package config loads the table and crypto parameters a demo board run
// needs from a YAML file, environment variables, or defaults, via viper.
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when num_buckets or bucket_depth resolves
// to zero after the file, environment and defaults are applied.
var ErrMissingConfig = errors.New("config: missing required field")

// Board holds the parameters both server replicas and every client in a
// demo run must agree on.
type Board struct {
	NumBuckets  uint64 `mapstructure:"num_buckets"`
	BucketDepth uint64 `mapstructure:"bucket_depth"`
	PaddingSize int    `mapstructure:"padding_size"`
	Seed        uint64 `mapstructure:"seed"`
}

// ItemSize is the fixed per-slot width this configuration implies:
// 12-byte nonce + padding + 16-byte GCM tag.
func (b Board) ItemSize() int {
	return 12 + b.PaddingSize + 16
}

// Load reads board parameters from configPath if non-empty, then
// CUCKOOPIR_-prefixed environment variables, falling back to the package
// defaults for anything still unset.
func Load(configPath string) (Board, error) {
	v := viper.New()
	v.SetEnvPrefix("cuckoopir")
	v.AutomaticEnv()

	v.SetDefault("num_buckets", 1024)
	v.SetDefault("bucket_depth", 4)
	v.SetDefault("padding_size", 48)
	v.SetDefault("seed", 12345)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Board{}, err
		}
	}

	var b Board
	if err := v.Unmarshal(&b); err != nil {
		return Board{}, err
	}
	if b.NumBuckets == 0 || b.BucketDepth == 0 {
		return Board{}, ErrMissingConfig
	}
	return b, nil
}
