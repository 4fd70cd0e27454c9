package firebase

import (
	"fmt"
	"log"
	"os"

	"google.golang.org/api/option"

	"quillchat/pkg/config"
)

// CredentialsOption returns the service account credentials for Google
// clients: the JSON from the environment when set (production), the key
// file otherwise (local development).
func CredentialsOption(cfg *config.Config) (option.ClientOption, error) {
	if cfg.ServiceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)), nil
	}

	if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account file does not exist: %s", cfg.ServiceAccountPath)
	}

	log.Printf("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
	return option.WithCredentialsFile(cfg.ServiceAccountPath), nil
}
