// Command heartsyncd runs the dual-ring acquisition daemon: it keeps both
// hand links alive through a serial gateway, filters and fuses their PPG
// streams, and serves the result over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/api"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/config"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/dsp"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/fuse"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/link"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/monitoring"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/timeutil"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/transport/serialbridge"
)

var (
	listen     = flag.String("listen", "", "HTTP listen address (overrides HEARTSYNC_LISTEN)")
	leftAddr   = flag.String("left", "", "left hand port path (overrides HEARTSYNC_LEFT_ADDR)")
	rightAddr  = flag.String("right", "", "right hand port path (overrides HEARTSYNC_RIGHT_ADDR)")
	namePrefix = flag.String("name-prefix", "", "advertised name prefix filter (overrides HEARTSYNC_NAME_PREFIX)")
	baudRate   = flag.Int("baud", 0, "serial baud rate (overrides HEARTSYNC_BAUD)")
	tuningPath = flag.String("tuning", "", "tuning JSON path (overrides HEARTSYNC_TUNING)")
	debugMode  = flag.Bool("debug", false, "enable per-event trace logging")
)

// pick returns the flag value when set, the environment value otherwise.
func pick(flagVal, envVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return envVal
}

func main() {
	flag.Parse()

	if *debugMode {
		monitoring.SetDebugLogger(log.Printf)
	}

	envCfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to load environment config: %v", err)
	}

	listenAddr := pick(*listen, envCfg.Listen)
	if listenAddr == "" {
		log.Fatal("Listen address is required")
	}

	left := pick(*leftAddr, envCfg.LeftAddress)
	if left == "" {
		// Single-port bench rigs configure only HEARTSYNC_SERIAL_PORT.
		left = envCfg.SerialPort
	}
	right := pick(*rightAddr, envCfg.RightAddress)
	if left == "" && right == "" {
		log.Fatal("At least one hand port is required (-left/-right or HEARTSYNC_LEFT_ADDR/HEARTSYNC_RIGHT_ADDR)")
	}

	baud := envCfg.BaudRate
	if *baudRate > 0 {
		baud = *baudRate
	}

	tuning := config.EmptyTuningConfig()
	if path := pick(*tuningPath, envCfg.TuningPath); path != "" {
		tuning, err = config.LoadTuningConfig(path)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		log.Printf("loaded tuning config from %s", path)
	}

	prefix := pick(*namePrefix, envCfg.NamePrefix)
	stall := tuning.GetStallTimeout()
	sup := link.NewSupervisor(
		serialbridge.New(baud),
		timeutil.RealClock{},
		link.LinkConfig{Address: left, NamePrefix: prefix, StallTimeout: stall},
		link.LinkConfig{Address: right, NamePrefix: prefix, StallTimeout: stall},
	)
	if err := sup.Start(); err != nil {
		log.Fatalf("failed to start link supervisor: %v", err)
	}
	defer sup.Stop()

	fused := stream.NewBroadcast[fuse.SyncedPoint](stream.DefaultCapacity)
	defer fused.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filterCfg := dsp.FilterConfig{
		SampleRateHz: tuning.GetSampleRateHz(),
		DCWindowS:    tuning.GetDCWindowS(),
		MAWindowS:    tuning.GetMAWindowS(),
	}

	// Per-hand pump: raw samples through the streaming filter into the fuser.
	pump := func(hand link.Hand) <-chan link.RawSample {
		out := make(chan link.RawSample)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(out)
			filter := dsp.NewStreamingFilter(filterCfg)
			id, c := sup.Samples(hand).Subscribe()
			defer sup.Samples(hand).Unsubscribe(id)
			for {
				select {
				case s, ok := <-c:
					if !ok {
						return
					}
					v, ok := filter.Update(float64(s.PPG))
					if !ok {
						continue
					}
					select {
					case out <- link.RawSample{TimeSeconds: s.TimeSeconds, PPG: float32(v)}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	}
	leftFiltered := pump(link.LeftHand)
	rightFiltered := pump(link.RightHand)

	wg.Add(1)
	go func() {
		defer wg.Done()
		fuser := fuse.New(fuse.Config{GridMs: tuning.GetGridMs(), WindowS: tuning.GetWindowS()})
		fuser.Run(ctx, leftFiltered, rightFiltered, fused)
		log.Print("fuser routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := api.NewServer(sup, fused, tuning).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("HeartSync ring daemon"))
		})

		server := &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		}

		go func() {
			log.Printf("listening on %s", listenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
