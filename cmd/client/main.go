package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/internal/api"
	"github.com/voxbridge/voxbridge/internal/capture"
	"github.com/voxbridge/voxbridge/internal/config"
	"github.com/voxbridge/voxbridge/internal/device"
	"github.com/voxbridge/voxbridge/internal/playback"
	"github.com/voxbridge/voxbridge/internal/relay"
	"github.com/voxbridge/voxbridge/internal/turn"
)

// deviceSampleRate is what the hardware runs at; utterances are
// resampled down to the canonical rate when capture finalizes.
const deviceSampleRate = 48000

func main() {
	configPath := flag.String("config", "client.yaml", "path to the client configuration file")
	mode := flag.String("mode", "talk", "talk (turn-taking loop) or listen (play a broadcast stream)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	devices, err := device.NewContext(logger)
	if err != nil {
		logger.Fatal("failed to initialize audio backend", zap.Error(err))
	}
	defer devices.Close()

	switch *mode {
	case "listen":
		runListen(cfg, devices, logger)
	case "talk":
		runTalk(cfg, devices, logger)
	default:
		logger.Fatal("unknown mode", zap.String("mode", *mode))
	}
}

// runListen attaches to a broadcast stream and plays every inbound
// frame until the connection drops or the user interrupts.
func runListen(cfg *config.Client, devices *device.Context, logger *zap.Logger) {
	out := device.NewPlaybackStream(devices, entities.TargetSampleRate, logger)
	engine := playback.NewEngine(out, logger)
	if err := engine.StartStream(meter); err != nil {
		logger.Fatal("failed to start playback", zap.Error(err))
	}
	defer engine.StopStream()

	closed := make(chan error, 1)
	conn, err := relay.Dial(context.Background(), cfg.ServerURL, cfg.StreamID,
		engine.Push, func(cause error) { closed <- cause }, logger)
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	fmt.Printf("listening on stream %q, Ctrl-C to quit\n", cfg.StreamID)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case cause := <-closed:
		fmt.Println()
		if cause != nil {
			logger.Error("connection lost", zap.Error(cause))
		}
	case <-interrupt:
		fmt.Println()
		logger.Info("interrupted")
	}
}

// runTalk drives the Enter-driven turn loop: record, translate through
// the server, play the response, flip sides.
func runTalk(cfg *config.Client, devices *device.Context, logger *zap.Logger) {
	in := device.NewCaptureStream(devices, deviceSampleRate, logger)
	out := device.NewPlaybackStream(devices, deviceSampleRate, logger)
	recorder := capture.NewEngine(in, logger)
	player := playback.NewEngine(out, logger)

	var opts []turn.Option
	if cfg.RenderCeilingSeconds > 0 {
		opts = append(opts, turn.WithRenderCeiling(time.Duration(cfg.RenderCeilingSeconds)*time.Second))
	}
	coordinator := turn.NewCoordinator(cfg.SideA.Language, cfg.SideB.Language, logger, opts...)

	turnDone := make(chan struct{}, 1)
	coordinator.OnState = func(state turn.State, active turn.Side) {
		if state == turn.StateIdle {
			select {
			case turnDone <- struct{}{}:
			default:
			}
		}
	}

	stdin := bufio.NewReader(os.Stdin)
	client := &http.Client{Timeout: 90 * time.Second}

	for {
		// Discard the Idle signal of a previous failed turn.
		select {
		case <-turnDone:
		default:
		}

		_, active := coordinator.State()
		fmt.Printf("\nside %s (%s) speaks next. Enter to record, q to quit: ", active, coordinator.ActiveLang())
		if quitRequested(stdin) {
			return
		}

		if err := coordinator.Start(); err != nil {
			if errors.Is(err, turn.ErrLanguagesMatch) {
				logger.Fatal("both sides use the same language, nothing to translate", zap.Error(err))
			}
			logger.Error("cannot start turn", zap.Error(err))
			continue
		}
		if err := recorder.Start(meter); err != nil {
			logger.Error("microphone unavailable", zap.Error(err))
			coordinator.Fail(err)
			continue
		}

		fmt.Print("recording... Enter to stop: ")
		stdin.ReadString('\n')
		fmt.Println()

		if err := coordinator.Stop(); err != nil {
			logger.Error("cannot finish capture", zap.Error(err))
			continue
		}
		utterance, err := recorder.Stop()
		if err != nil {
			if errors.Is(err, capture.ErrEmptyCapture) {
				fmt.Println("nothing recorded, same side keeps the turn")
			} else {
				logger.Error("capture failed", zap.Error(err))
			}
			coordinator.Fail(err)
			continue
		}

		response, err := requestTranslation(client, cfg.ServerURL,
			coordinator.ActiveLang(), coordinator.PassiveLang(), utterance)
		if err != nil {
			logger.Error("translation request failed", zap.Error(err))
			coordinator.Fail(err)
			continue
		}

		if err := coordinator.ResponseReady(); err != nil {
			logger.Error("turn already over", zap.Error(err))
			continue
		}
		err = player.PlayOnce(response, meter, func() {
			fmt.Println()
			// Ignored when the safety ceiling already flipped the turn.
			coordinator.PlaybackEnded()
		})
		if err != nil {
			logger.Error("cannot play response", zap.Error(err))
			coordinator.Fail(err)
			continue
		}

		<-turnDone
	}
}

// requestTranslation posts the utterance and returns the synthesized
// response payload.
func requestTranslation(client *http.Client, serverURL, fromLang, toLang string, u *entities.Utterance) ([]byte, error) {
	body, err := json.Marshal(api.TranslateRequest{
		FromLang: fromLang,
		ToLang:   toLang,
		AudioB64: base64.StdEncoding.EncodeToString(u.Data),
	})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(strings.TrimSuffix(serverURL, "/")+"/api/voice/translate",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, payload)
	}
	return payload, nil
}

func quitRequested(stdin *bufio.Reader) bool {
	line, err := stdin.ReadString('\n')
	if err != nil {
		return true
	}
	return strings.TrimSpace(line) == "q"
}

// meter renders a crude loudness bar on the current line.
func meter(level float64) {
	const width = 30
	n := int(level * width)
	if n > width {
		n = width
	}
	fmt.Printf("\r[%-*s]", width, strings.Repeat("=", n))
}
