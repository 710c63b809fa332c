// Package main provides the entry point for the ttskit CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dibbed/ttskit/internal/synth"
	"github.com/dibbed/ttskit/tts"
	"github.com/dibbed/ttskit/tts/engines/googlecloud"
	"github.com/dibbed/ttskit/tts/engines/gtts"
	"github.com/dibbed/ttskit/tts/engines/mock"
	"github.com/dibbed/ttskit/tts/engines/piper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "ttskit",
		Short:         "Multi-engine text-to-speech with smart routing",
		Long:          "\nSynthesize speech through whichever engine is healthiest: ttskit tracks per-engine success rates and latency, and routes each request accordingly with automatic fallback.",
		SilenceErrors: false,
		SilenceUsage:  true,
	}
)

// envOverrides are environment settings read outside of Viper.
type envOverrides struct {
	Debug           bool   `env:"TTSKIT_DEBUG"`
	LogFile         string `env:"TTSKIT_LOGFILE"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("default_language", "en")
	viper.SetDefault("fallback_mode", "best-only")

	rootCmd.AddCommand(speakCmd, enginesCmd, voicesCmd, serveCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ttskit")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ttskit")}, dirs...)
	}

	if c := os.Getenv("TTSKIT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ttskit")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ttskit")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "ttskit.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

func setupLog() (func() error, error) {
	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if debug || overrides.Debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.Kitchen)

	if overrides.LogFile != "" {
		f, err := os.OpenFile(overrides.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		return f.Close, nil
	}

	log.SetOutput(os.Stderr)
	return func() error { return nil }, nil
}

// buildService loads configuration and wires the registry, router, cache,
// and synthesis service together. The caller must Close the service.
func buildService(ctx context.Context) (*synth.Service, *tts.Registry, tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return nil, nil, tts.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, tts.Config{}, err
	}

	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return nil, nil, tts.Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	if cfg.GoogleCloud.CredentialsFile == "" {
		cfg.GoogleCloud.CredentialsFile = overrides.CredentialsFile
	}

	registry := tts.NewRegistry()
	registerEngines(ctx, registry, cfg)

	for lang, order := range cfg.Policies {
		registry.SetPolicy(lang, order)
	}

	mode, err := tts.ParseFallbackMode(cfg.FallbackMode)
	if err != nil {
		return nil, nil, tts.Config{}, err
	}
	router := tts.NewRouterWithMode(registry, mode)

	cacheManager, err := synth.CacheFromConfig(cfg.Cache)
	if err != nil {
		log.Warn("cache disabled", "error", err)
		cacheManager = nil
	}

	return synth.NewService(router, cacheManager), registry, cfg, nil
}

// registerEngines instantiates each enabled backend. A backend that fails to
// construct is logged and skipped so the others still register.
func registerEngines(ctx context.Context, registry *tts.Registry, cfg tts.Config) {
	if cfg.GTTS.Enabled {
		engine := gtts.New(cfg.GTTS)
		if err := registry.Register("gtts", engine, engine.Capabilities()); err != nil {
			log.Warn("could not register gtts", "error", err)
		}
	}

	if cfg.GoogleCloud.Enabled {
		engine, err := googlecloud.New(ctx, cfg.GoogleCloud)
		if err != nil {
			log.Warn("could not initialize google cloud tts", "error", err)
		} else if err := registry.Register("googlecloud", engine, engine.Capabilities()); err != nil {
			log.Warn("could not register googlecloud", "error", err)
		}
	}

	if cfg.Piper.Enabled {
		engine, err := piper.New(cfg.Piper)
		if err != nil {
			log.Warn("could not initialize piper", "error", err)
		} else if err := registry.Register("piper", engine, engine.Capabilities()); err != nil {
			log.Warn("could not register piper", "error", err)
		}
	}

	if cfg.Mock.Enabled {
		engine := mock.NewFromConfig(cfg.Mock)
		if err := registry.Register("mock", engine, engine.Capabilities()); err != nil {
			log.Warn("could not register mock", "error", err)
		}
	}
}

// readTextArg resolves the text to speak from args or stdin ("-").
func readTextArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return args[0], nil
}
