package config

import (
	"os"
	"strconv"
	"time"
)

// Transport drivers understood by the client.
const (
	TransportFastHTTP = "fasthttp"
	TransportCoder    = "coder"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// PresenceConfig holds the presence client configuration.
type PresenceConfig struct {
	BrokerURL        string        `json:"broker_url"`
	Transport        string        `json:"transport"`
	HandshakeTimeout time.Duration `json:"handshake_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	LeaveTimeout     time.Duration `json:"leave_timeout"`
	EventBuffer      int           `json:"event_buffer"`
	StatusAddr       string        `json:"status_addr"`
	Store            string        `json:"store"`
}

// DefaultConfig returns the default presence client configuration.
func DefaultConfig() *PresenceConfig {
	return &PresenceConfig{
		BrokerURL:        "ws://localhost:8080/ws",
		Transport:        TransportFastHTTP,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		LeaveTimeout:     time.Second,
		EventBuffer:      256,
		StatusAddr:       "127.0.0.1:7070",
		Store:            StoreMemory,
	}
}

// FromEnv loads configuration from environment variables.
// Missing or invalid values keep their defaults.
func FromEnv() *PresenceConfig {
	cfg := DefaultConfig()

	if v := os.Getenv("PRESENCE_BROKER_URL"); v != "" {
		cfg.BrokerURL = v
	}
	switch v := os.Getenv("PRESENCE_TRANSPORT"); v {
	case TransportFastHTTP, TransportCoder:
		cfg.Transport = v
	}
	if d, ok := durationEnv("PRESENCE_HANDSHAKE_TIMEOUT"); ok {
		cfg.HandshakeTimeout = d
	}
	if d, ok := durationEnv("PRESENCE_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = d
	}
	if d, ok := durationEnv("PRESENCE_LEAVE_TIMEOUT"); ok {
		cfg.LeaveTimeout = d
	}
	if v := os.Getenv("PRESENCE_EVENT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventBuffer = n
		}
	}
	if v := os.Getenv("PRESENCE_STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}
	switch v := os.Getenv("PRESENCE_STORE"); v {
	case StoreMemory, StoreRedis:
		cfg.Store = v
	}
	return cfg
}

func durationEnv(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
