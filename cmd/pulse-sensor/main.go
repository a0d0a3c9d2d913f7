// Command pulse-sensor runs the pulse monitoring daemon: it drives the
// sample source, feeds the monitoring session, publishes beats and
// presence changes to MQTT and serves a status page over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/pulse-sensor/internal/calib"
	"github.com/sweeney/pulse-sensor/internal/config"
	"github.com/sweeney/pulse-sensor/internal/detect"
	"github.com/sweeney/pulse-sensor/internal/led"
	"github.com/sweeney/pulse-sensor/internal/monitor"
	"github.com/sweeney/pulse-sensor/internal/ppg"
	"github.com/sweeney/pulse-sensor/internal/status"
	"github.com/sweeney/pulse-sensor/internal/telemetry"
	"github.com/sweeney/pulse-sensor/internal/web"
)

const (
	// alertHold keeps the alert LED blinking this long after an
	// arrhythmic beat.
	alertHold = 5 * time.Second

	// blinkHalfMs is half the alert blink period.
	blinkHalfMs = 500
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	tick := flag.Duration("tick", 0, "Acquisition tick interval (0 derives from config sample rate)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	simBPM := flag.Float64("sim-bpm", 72, "Simulated heart rate")
	simNoise := flag.Float64("sim-noise", 0.02, "Simulated noise amplitude")
	useLEDs := flag.Bool("leds", true, "Drive status LEDs over GPIO")
	pinPresence := flag.Int("pin-presence", led.PinPresence, "BCM pin number for the presence LED")
	pinAlert := flag.Int("pin-alert", led.PinAlert, "BCM pin number for the alert LED")
	printSample := flag.Bool("print-sample", false, "Print one sample and exit")

	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}

	if err := run(cfg, *tick, *broker, *heartbeat, *httpAddr, *simBPM, *simNoise, *useLEDs, *pinPresence, *pinAlert, *printSample, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg config.File, tick time.Duration, broker string, heartbeat time.Duration, httpAddr string, simBPM, simNoise float64, useLEDs bool, pinPresence, pinAlert int, printSample bool, logger *zap.Logger) error {
	if tick <= 0 {
		tick = time.Second / time.Duration(cfg.SampleRateHz)
	}
	rateHz := float64(time.Second) / float64(tick)

	src := ppg.NewSimSource(rateHz, simBPM, simNoise)
	defer src.Close()

	// Print sample mode
	if printSample {
		sample, err := src.Read()
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
		fmt.Printf("raw=%.4f filtered=%.4f amplified=%.4f quality=%.0f finger=%v\n",
			sample.Raw, sample.Filtered, sample.Amplified, sample.Quality, sample.FingerDetected)
		return nil
	}

	// Initialize LEDs. The daemon is useful without them, so a failed
	// GPIO init degrades to no-op indication instead of aborting.
	var indicator led.Indicator = led.NopIndicator{}
	if useLEDs {
		hw, err := led.NewRealIndicator(pinPresence, pinAlert)
		if err != nil {
			logger.Warn("led init failed, continuing without LEDs", zap.Error(err))
		} else {
			indicator = hw
		}
	}
	defer indicator.Close()

	// Initialize MQTT
	publisher, err := telemetry.NewRealPublisher(broker, logger)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      tick.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPPort:    httpAddr,
	})

	sess := monitor.NewSession(cfg.Monitor,
		monitor.WithLogger(logger),
		monitor.WithObserver(&publishObserver{pub: publisher, log: logger}),
	)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := telemetry.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", zap.Error(err))
	} else {
		logger.Info("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", zap.String("addr", httpAddr))
	}

	logger.Info("started",
		zap.String("session", sess.ID()),
		zap.Duration("tick", tick),
		zap.String("broker", broker),
		zap.Duration("heartbeat", heartbeat),
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(src, sess, publisher, publisher, tracker, indicator, heartbeat, cfg.EnvInterval, time.Now, ticker.C, sigCh, logger)
}

func runLoop(src ppg.Source, sess *monitor.Session, publisher telemetry.Publisher, mqttStatus telemetry.ConnectionStatus, tracker *status.Tracker, indicator led.Indicator, heartbeat, envInterval time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, logger *zap.Logger) error {
	startTime := now()

	var (
		beatCount   int
		lastEnv     = startTime
		lastHB      = startTime
		alertUntil  time.Time
		residualSum float64
		residualN   int
		presenceLED bool
		alertLED    bool
	)

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", zap.String("signal", s.String()))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := telemetry.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				logger.Info("published shutdown event")
			}
			sess.Stop()
			return nil

		case <-tick:
			t := now()
			sample, err := src.Read()
			if err != nil {
				logger.Warn("sample read error", zap.Error(err))
				continue
			}

			res := sess.Process(sample, t)
			if res.Cardiac.IsPeak {
				beatCount++
				if res.Cardiac.IsArrhythmia {
					alertUntil = t.Add(alertHold)
				}
			}

			// The frontend reports no environment stats, so noise is
			// estimated from the filter residual between observations.
			residualSum += math.Abs(sample.Raw - sample.Filtered)
			residualN++
			if envInterval > 0 && t.Sub(lastEnv) >= envInterval && residualN > 0 {
				lastEnv = t
				noise := residualSum / float64(residualN) * 20
				if noise > 1 {
					noise = 1
				}
				residualSum, residualN = 0, 0
				sess.Observe(calib.Observation{Noise: noise, Brightness: 128}, t)
			}

			// Presence LED holds steady; alert LED blinks while an
			// arrhythmic beat is recent.
			if res.Presence != presenceLED {
				presenceLED = res.Presence
				if err := indicator.SetPresence(presenceLED); err != nil {
					logger.Warn("presence led error", zap.Error(err))
				}
			}
			wantAlert := t.Before(alertUntil) && (t.UnixMilli()/blinkHalfMs)%2 == 0
			if wantAlert != alertLED {
				alertLED = wantAlert
				if err := indicator.SetAlert(alertLED); err != nil {
					logger.Warn("alert led error", zap.Error(err))
				}
			}

			snap := sess.Snapshot()
			if tracker != nil {
				tracker.Update(snap.ID, snap.HeartRate, t.Before(alertUntil), snap.ArrhythmiaCount, snap.Presence, snap.PresenceScore, snap.Outputs, snap.Params)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHB) >= heartbeat {
				lastHB = t
				hbEvent := telemetry.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
					Heartbeat: &telemetry.HeartbeatInfo{
						UptimeSeconds:   int64(t.Sub(startTime).Seconds()),
						BeatCount:       beatCount,
						ArrhythmiaCount: snap.ArrhythmiaCount,
					},
				}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					logger.Warn("heartbeat publish error", zap.Error(err))
				} else {
					logger.Info("heartbeat",
						zap.Int64("uptime_seconds", int64(t.Sub(startTime).Seconds())),
						zap.Int("beats", beatCount),
						zap.Int("arrhythmias", snap.ArrhythmiaCount),
					)
				}
			}
		}
	}
}

// publishObserver forwards session events to the MQTT publisher.
type publishObserver struct {
	pub telemetry.Publisher
	log *zap.Logger
}

func (o *publishObserver) OnBeat(ev monitor.BeatEvent) {
	o.log.Debug("beat",
		zap.Int("heart_rate_bpm", ev.HeartRate),
		zap.Bool("arrhythmia", ev.IsArrhythmia),
	)
	if err := o.pub.PublishBeat(ev); err != nil {
		o.log.Warn("beat publish error", zap.Error(err))
	}
}

func (o *publishObserver) OnPresence(tr detect.Transition) {
	o.log.Info("presence changed",
		zap.Bool("detected", tr.Detected),
		zap.Float64("confidence", tr.Confidence),
	)
	if err := o.pub.PublishPresence(tr); err != nil {
		o.log.Warn("presence publish error", zap.Error(err))
	}
}
