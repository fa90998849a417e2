package goOTP

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig decodes YAML from r over DefaultConfig and validates the
// result. Unknown keys are rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg, err := decodeConfig(r)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads the config at path. Receipt key files are resolved
// relative to the config file's directory and loaded before validation.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open otp config: %w", err)
	}
	defer f.Close()

	cfg, err := decodeConfig(f)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Receipt.LoadKeyFiles(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode otp config: %w", err)
	}
	return cfg, nil
}

// LoadKeyFiles fills PrivateKey and PublicKey from their *File fields when the
// inline keys are empty. Relative paths are resolved against baseDir.
func (c *ReceiptConfig) LoadKeyFiles(baseDir string) error {
	read := func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(baseDir, name)
		}
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read receipt key: %w", err)
		}
		return b, nil
	}

	if len(c.PrivateKey) == 0 && c.PrivateKeyFile != "" {
		b, err := read(c.PrivateKeyFile)
		if err != nil {
			return err
		}
		c.PrivateKey = b
	}
	if len(c.PublicKey) == 0 && c.PublicKeyFile != "" {
		b, err := read(c.PublicKeyFile)
		if err != nil {
			return err
		}
		c.PublicKey = b
	}
	return nil
}
