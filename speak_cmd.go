package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dibbed/ttskit/tts"
)

var (
	speakLanguage string
	speakVoice    string
	speakRate     float64
	speakPitch    float64
	speakEngine   string
	speakOffline  bool
	speakOutput   string

	speakCmd = &cobra.Command{
		Use:     "speak [TEXT]",
		Short:   "Synthesize text to audio",
		Long:    "\nSynthesize TEXT (or stdin with \"-\") to audio. The best available engine is chosen from live performance stats unless --engine pins one.",
		Example: "ttskit speak \"hello world\" -o hello.mp3\necho hi | ttskit speak - --language en -o hi.mp3",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSpeak,
	}
)

func init() {
	speakCmd.Flags().StringVarP(&speakLanguage, "language", "L", "", "language code (default from config)")
	speakCmd.Flags().StringVarP(&speakVoice, "voice", "V", "", "voice name")
	speakCmd.Flags().Float64VarP(&speakRate, "rate", "r", 1.0, "speaking rate multiplier")
	speakCmd.Flags().Float64VarP(&speakPitch, "pitch", "p", 0, "pitch adjustment")
	speakCmd.Flags().StringVarP(&speakEngine, "engine", "e", "", "pin a specific engine instead of routing")
	speakCmd.Flags().BoolVar(&speakOffline, "offline", false, "require an offline engine")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "", "write audio to file instead of stdout")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := readTextArg(args)
	if err != nil {
		return err
	}
	if text == "" {
		return tts.ErrEmptyText
	}

	// Raw audio on a terminal is useless and messes up the session.
	if speakOutput == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("refusing to write audio to a terminal; use --output or redirect stdout")
	}

	service, registry, cfg, err := buildService(cmd.Context())
	if err != nil {
		return err
	}
	defer service.Close()

	lang := speakLanguage
	if lang == "" {
		lang = cfg.DefaultLanguage
	}

	opts := tts.DefaultSynthOptions()
	opts.Language = lang
	opts.Voice = speakVoice
	opts.Rate = speakRate
	opts.Pitch = speakPitch

	var audio []byte
	var engineName string

	if speakEngine != "" {
		engine, ok := registry.Get(speakEngine)
		if !ok {
			return fmt.Errorf("engine %q: %w", speakEngine, tts.ErrEngineNotRegistered)
		}
		if !engine.IsAvailable() {
			return fmt.Errorf("engine %q: %w", speakEngine, tts.ErrEngineNotAvailable)
		}

		start := time.Now()
		audio, err = engine.Synthesize(cmd.Context(), text, opts)
		if err != nil {
			registry.RecordFailure(speakEngine)
			return err
		}
		registry.RecordSuccess(speakEngine, time.Since(start))
		engineName = speakEngine
	} else {
		var req *tts.Requirements
		if speakOffline || speakVoice != "" {
			req = &tts.Requirements{Voice: speakVoice, TextLength: len(text)}
			if speakOffline {
				req.Offline = tts.Bool(true)
			}
		}

		result, err := service.Synthesize(cmd.Context(), text, lang, req, opts)
		if err != nil {
			return err
		}
		audio = result.Audio
		engineName = result.Engine
		if result.Cached {
			log.Debug("served from cache")
		}
	}

	log.Info("synthesis complete", "engine", engineName,
		"size", humanize.Bytes(uint64(len(audio))))

	if speakOutput != "" {
		if err := os.WriteFile(speakOutput, audio, 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		return nil
	}

	_, err = os.Stdout.Write(audio)
	return err
}
