package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/rangesim/logging"
)

// Read reads a world file from the given path, substituting environment variables, and
// validates it.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a world file from the given reader and validates it. originalPath is
// recorded on the config and used in log messages only.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	var conf Config
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conf); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	conf.ConfigFilePath = originalPath
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid world file %q", originalPath)
	}
	logger.Debugw("read world file",
		"path", originalPath,
		"entities", len(conf.Entities),
		"agents", len(conf.Agents),
		"sensors", len(conf.Sensors()))
	return &conf, nil
}
