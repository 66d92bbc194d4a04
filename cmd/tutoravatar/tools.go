package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/tutoravatar/internal/app"
	"github.com/normanking/tutoravatar/internal/expression"
	"github.com/normanking/tutoravatar/internal/gesture"
	"github.com/normanking/tutoravatar/internal/scene"
	"github.com/normanking/tutoravatar/internal/speech"
	"github.com/normanking/tutoravatar/internal/tts"
	"github.com/normanking/tutoravatar/internal/viseme"
)

func timelineCommand() *cobra.Command {
	var durationMs int64
	var wpm int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "timeline [text]",
		Short: "Print the mouth aperture timeline for a piece of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			d := time.Duration(durationMs) * time.Millisecond
			if d <= 0 {
				cfg := loadConfig()
				coord := speech.New(speech.Config{
					WordsPerMinute: cfg.Speech.WordsPerMinute,
					CharsPerWord:   cfg.Speech.CharsPerWord,
					MinDuration:    cfg.Speech.MinDuration,
					MaxDuration:    cfg.Speech.MaxDuration,
				}, nil, tts.Null{})
				d = coord.EstimateDuration(text, wpm)
			}
			entries := viseme.TextToTimeline(text, float64(d.Milliseconds()))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("%q over %s", viseme.Normalize(text), d)))
			for _, e := range entries {
				bar := strings.Repeat("█", int(e.Aperture*40+0.5))
				fmt.Printf("%8.1f ms  %.2f  %s\n", e.TimeMs, e.Aperture, bar)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&durationMs, "duration-ms", 0, "total duration (default: estimated from word count)")
	cmd.Flags().IntVar(&wpm, "wpm", 0, "speaking rate used for the estimate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func exportCommand() *cobra.Command {
	var emotion, gestureName string
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "export [file.glb]",
		Short: "Pose the avatar and write the scene as binary glTF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			cfg.Logging.Console = false

			a, err := newApp(cfg, tts.Null{})
			if err != nil {
				return err
			}
			defer a.Log.Close()
			defer a.Close()

			if emotion != "" {
				a.Runtime.Post(app.Command{Type: app.CmdEmotion, Name: emotion})
			}
			if gestureName != "" {
				a.Runtime.Post(app.Command{Type: app.CmdGesture, Name: gestureName})
			}

			// simulated 60 Hz so the pose is reproducible
			now := time.Unix(0, 0)
			for t := time.Duration(0); t <= settle; t += time.Second / 60 {
				a.Runtime.Frame(now.Add(t))
			}

			if err := scene.ExportGLB(a.Scene, args[0]); err != nil {
				return err
			}
			state := a.Avatar.State()
			fmt.Println(successStyle.Render("✓ Exported " + args[0]))
			fmt.Printf("  Nodes:   %d\n", a.Scene.Count())
			fmt.Printf("  Emotion: %s\n", state.Emotion)
			fmt.Printf("  Gesture: %s\n", state.Gesture)
			return nil
		},
	}
	cmd.Flags().StringVar(&emotion, "emotion", "", "emotion preset to apply")
	cmd.Flags().StringVar(&gestureName, "gesture", "", "gesture to trigger")
	cmd.Flags().DurationVar(&settle, "settle", time.Second, "animation time to run before exporting")
	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List emotion presets and gestures",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(titleStyle.Render("Emotions"))
			for _, e := range expression.Emotions {
				v, _ := expression.Preset(e)
				fmt.Printf("  %-12s %s\n", e, dimStyle.Render(fmt.Sprintf(
					"brow %+.2f/%+.2f  lift %+.3f/%+.3f  lids %.2f/%.2f  mouth %.2f",
					v.BrowAngle[0], v.BrowAngle[1], v.BrowOffset[0], v.BrowOffset[1],
					v.LidOpen[0], v.LidOpen[1], v.MouthWidth)))
			}

			fmt.Println()
			fmt.Println(titleStyle.Render("Gestures"))
			configs := gesture.DefaultConfigs()
			names := make([]string, 0, len(configs))
			for n := range configs {
				names = append(names, string(n))
			}
			sort.Strings(names)
			for _, n := range names {
				c := configs[gesture.Name(n)]
				fmt.Printf("  %-12s %s\n", n, dimStyle.Render(fmt.Sprintf(
					"%s in, %s hold, %s out", c.EaseIn, c.Hold, c.EaseOut)))
			}
			fmt.Printf("  %-12s %s\n", gesture.Idle, dimStyle.Render("continuous"))
			fmt.Printf("  %-12s %s\n", gesture.Talk, dimStyle.Render("continuous while speaking"))
			return nil
		},
	}
}

func sayCommand() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "say [text]",
		Short: "Speak text headless and optionally trace the mouth",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			cfg := loadConfig()

			a, err := newApp(cfg, nil)
			if err != nil {
				return err
			}
			defer a.Log.Close()
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, a.Speech.EstimateDuration(text, 0)+10*time.Second)
			defer cancel()
			a.Runtime.SetContext(ctx)

			a.Runtime.Post(app.Command{Type: app.CmdSpeak, Text: text})

			fps := max(cfg.Render.FPS, 1)
			ticker := time.NewTicker(time.Second / time.Duration(fps))
			defer ticker.Stop()

			started := false
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case now := <-ticker.C:
					snap := a.Runtime.Frame(now)
					if snap.Speaking {
						started = true
					} else if !started && snap.Frame > 1 {
						return fmt.Errorf("speech did not start (synth %s, enabled %v)", a.Synth.Name(), snap.SpeechEnabled)
					}
					if trace && started {
						open := snap.Avatar.MouthOpenCurrent
						fmt.Printf("%6d  %.2f  %s\n", snap.Frame, open, strings.Repeat("█", int(open*40+0.5)))
					}
					if started && !snap.Speaking {
						fmt.Println(successStyle.Render("✓ Done") + " " + dimStyle.Render("via "+a.Synth.Name()))
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print mouth openness every frame")
	return cmd
}
