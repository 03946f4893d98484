package configutil

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv layers a .env file into the process environment without
// clobbering variables the deployment already set. Missing files are
// fine; hosted environments inject real env vars instead.
func LoadDotenv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vars {
			if _, exists := os.LookupEnv(k); !exists {
				os.Setenv(k, v)
			}
		}
		return
	}
}

// Env returns an environment variable with a default. Secrets such as
// site credentials come through here rather than config files.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
