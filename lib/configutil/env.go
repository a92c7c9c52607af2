package configutil

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given dotenv files (".env" if none are given) into the process
// environment, variables that are already set are left untouched. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		slog.Debug("loaded dotenv file", "file", f)
	}
	return nil
}

// EnvString overwrites `dst` with the environment variable `key` if it is set and non-empty.
func EnvString(dst *string, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	*dst = value
}

// EnvInt overwrites `dst` with the environment variable `key` if it is set to a valid integer.
func EnvInt(dst *int, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring non-integer environment variable", "key", key, "err", err)
		return
	}
	*dst = parsed
}
