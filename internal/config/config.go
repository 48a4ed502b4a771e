package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wpbb10/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	// ListenAddr is the HTTP/WebSocket bind address for the bridge.
	ListenAddr string `toml:"listen_addr"`

	// PublicURL is the externally reachable base URL advertised to the
	// mobile client via GET /api/tunnel. Empty means the client should
	// use the address it connected on.
	PublicURL string `toml:"public_url"`

	// FFmpegPath is the ffmpeg binary used for audio transcoding.
	FFmpegPath string `toml:"ffmpeg_path"`
}

// Defaults applied when fields are absent from the config file.
const (
	DefaultListenAddr = ":3000"
	DefaultFFmpegPath = "ffmpeg"
)

// Load reads config from the given path. Missing file is an error;
// missing fields fall back to defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, returning a default config when
// the file does not exist.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
		cfg.applyDefaults()
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = DefaultFFmpegPath
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
