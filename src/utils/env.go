package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEFAULT_ENV_FILENAME = ".env"

// InitEnvironmentVariables loads the env file holding the gateway URL and
// credentials. A missing default file is fine; an explicitly configured one
// must exist.
func InitEnvironmentVariables() error {
	envFile := os.Getenv("OPTION_SCREENER_ENV_FILE")
	explicit := envFile != ""
	if !explicit {
		envFile = DEFAULT_ENV_FILENAME
	}

	if err := godotenv.Load(envFile); err != nil {
		if explicit {
			return fmt.Errorf("failed to load %s file: %v", envFile, err)
		}

		log.Debugf("no %s file found, using process environment", envFile)
		return nil
	}

	log.Infof("loaded environment from %s", envFile)

	return nil
}
