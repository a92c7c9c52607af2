package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalName returns the override file name for a config file, "config.json5" becomes
// "config.local.json5".
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

// readLayer decodes `path` into a new T, found is false if the file does not exist or is empty.
func readLayer[T any](path string) (layer T, found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return layer, false, nil
	}
	err = json5.Unmarshal(contents, &layer)
	if err != nil {
		return layer, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return layer, true, nil
}

// reads a json5 configuration file, `name` should come with a file extension.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned if neither exist.
func ReadConfig[T any](name string) (T, error) {
	out, foundDefault, err := readLayer[T](name)
	if err != nil {
		return out, err
	}

	localPath := LocalName(name)
	override, foundLocal, err := readLayer[T](localPath)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadConfig but it recursively goes up the filesystem until the root
// to find a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return defaultOut, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, os.ErrNotExist
		}
		current = parent
	}
}
