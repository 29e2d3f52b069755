package config

import "os"

const tokenEnvKey = "SYNC_ID_TOKEN"

type AuthConfig struct {
	IDToken string `yaml:"id-token"`
}

// Token prefers the environment over the config file so the secret
// does not have to live in data/config.yaml.
func (c *AuthConfig) Token() string {
	if tok := os.Getenv(tokenEnvKey); tok != "" {
		return tok
	}
	return c.IDToken
}
