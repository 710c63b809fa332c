package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dibbed/ttskit/tts"
)

var (
	enginesStats bool

	enginesCmd = &cobra.Command{
		Use:   "engines",
		Short: "List registered engines and their capabilities",
		Args:  cobra.NoArgs,
		RunE:  runEngines,
	}

	voicesCmd = &cobra.Command{
		Use:   "voices [LANGUAGE]",
		Short: "List voices offered by each available engine",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVoices,
	}
)

func init() {
	enginesCmd.Flags().BoolVarP(&enginesStats, "stats", "s", false, "include performance statistics")
}

func runEngines(cmd *cobra.Command, _ []string) error {
	service, registry, _, err := buildService(cmd.Context())
	if err != nil {
		return err
	}
	defer service.Close()

	available := make(map[string]bool)
	for _, name := range registry.AvailableEngines() {
		available[name] = true
	}

	names := registry.Names()
	if len(names) == 0 {
		fmt.Println("No engines registered. Enable at least one engine in the config file.")
		return nil
	}

	for _, name := range names {
		caps, _ := registry.Capabilities(name)

		status := "unavailable"
		if available[name] {
			status = "available"
		}
		fmt.Printf("%s (%s)\n", name, status)
		fmt.Printf("  offline: %v  ssml: %v  rate: %v  pitch: %v\n",
			caps.Offline, caps.SSML, caps.RateControl, caps.PitchControl)
		if len(caps.Languages) > 0 {
			fmt.Printf("  languages: %s\n", strings.Join(caps.Languages, ", "))
		}
		if caps.MaxTextLength > 0 {
			fmt.Printf("  max text: %s characters\n", humanize.Comma(int64(caps.MaxTextLength)))
		}

		if enginesStats {
			printEngineStats(registry, name)
		}
		fmt.Println()
	}

	return nil
}

func printEngineStats(registry *tts.Registry, name string) {
	stats, ok := registry.Stats(name)
	if !ok || stats.Successes+stats.Failures == 0 {
		fmt.Println("  stats: no requests yet")
		return
	}

	fmt.Printf("  stats: %d ok, %d failed (%.0f%% success), avg %s\n",
		stats.Successes, stats.Failures, stats.SuccessRate*100,
		stats.AvgDuration.Round(time.Millisecond))
	if !stats.LastUsed.IsZero() {
		fmt.Printf("  last used: %s\n", humanize.Time(stats.LastUsed))
	}
}

func runVoices(cmd *cobra.Command, args []string) error {
	service, registry, cfg, err := buildService(cmd.Context())
	if err != nil {
		return err
	}
	defer service.Close()

	lang := cfg.DefaultLanguage
	if len(args) > 0 {
		lang = args[0]
	}

	for _, name := range registry.AvailableEngines() {
		engine, ok := registry.Get(name)
		if !ok {
			continue
		}

		voices, err := engine.ListVoices(lang)
		if err != nil {
			fmt.Printf("%s: error listing voices: %v\n", name, err)
			continue
		}
		if len(voices) == 0 {
			fmt.Printf("%s: no named voices (engine default)\n", name)
			continue
		}

		fmt.Printf("%s:\n", name)
		for _, voice := range voices {
			fmt.Printf("  %s\n", voice)
		}
	}

	return nil
}
