package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/synchat/internal/infrastructure/env"
)

var configCandidates = []string{
	"./config.yaml",
	"./config.yml",
	"../../config.yaml", // keep for local dev
	"/etc/synchat/config.yaml",
	"/app/config.yaml", // common in Docker
}

// DetermineConfigPath resolves the config file from --config, SYNCHAT_CONFIG or
// the well-known locations. An empty result means "defaults only".
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("SYNCHAT_CONFIG", "")
	}

	if configPath == "" {
		configPath = firstExisting(configCandidates)
	}

	return configPath
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
