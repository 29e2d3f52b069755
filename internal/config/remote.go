package config

import "time"

const defaultTimeoutSeconds = 10

type RemoteConfig struct {
	URL            string `yaml:"base-url"`
	Db             string `yaml:"db-name"`
	TimeoutSeconds int64  `yaml:"timeout-seconds"`
}

func (c *RemoteConfig) BaseURL() string {
	return c.URL
}

func (c *RemoteConfig) Database() string {
	return c.Db
}

func (c *RemoteConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = defaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}
