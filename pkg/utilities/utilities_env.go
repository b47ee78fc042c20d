package utilities

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads the given dotenv files, skipping the ones that do not exist.
// Variables already present in the process environment win.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// MustEnv returns the value of an environment variable or panics if it is not defined.
func MustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env " + k)
	}
	return v
}

func GetenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
