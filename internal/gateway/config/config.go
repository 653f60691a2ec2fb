package config

import "time"

type Config struct {
	BaseURL     string
	RefreshPath string
	LoginPath   string
	Timeout     time.Duration
}

const (
	DefaultRefreshPath = "/token/refresh/"
	DefaultLoginPath   = "/token/"
)
