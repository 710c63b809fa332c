package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# default language for synthesis when none is given
default_language: "en"

# fallback mode: "best-only" retries nothing after the best engine fails,
# "full-chain" walks every eligible engine in score order
fallback_mode: "best-only"

# per-language engine preference, tried in order
# policies:
#   en: ["gtts", "piper"]
#   fa: ["piper"]

engines:
  gtts:
    enabled: true
    # stretch words out for language learners
    slow: false
    timeout: "10s"
    # throttle outgoing requests so Google does not block the client
    requests_per_minute: 50

  googlecloud:
    enabled: false
    # defaults to GOOGLE_APPLICATION_CREDENTIALS
    # credentials_file: "/path/to/credentials.json"
    timeout: "10s"

  piper:
    enabled: false
    binary: "piper"
    # model_path: "/path/to/model.onnx"
    # config_path: "/path/to/model.onnx.json"
    speaker_id: 0
    timeout: "30s"

  mock:
    enabled: false
    generation_delay: "100ms"
    failure_rate: 0.0

cache:
  enabled: true
  # dir: ""  # defaults to ~/.cache/ttskit/audio
  memory_capacity_mb: 100
  disk_capacity_mb: 1024
  # zstd level, 0 disables compression
  compression_level: 3
  ttl_days: 7

server:
  addr: ":8080"
  rate_limit_rpm: 120
  rate_limit_burst: 10
  allowed_origins: ["*"]
  read_timeout: "15s"
  write_timeout: "60s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the ttskit config file",
	Long:    "\nEdit the ttskit config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "ttskit config\nttskit config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("TTSKit", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
