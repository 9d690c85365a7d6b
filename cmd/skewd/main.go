// Command skewd is the streaming skew estimator (spec.md §6): it
// subscribes to the live spot feed over MQTT, feeds accepted spots through
// the correlation engine, and periodically publishes a JSON daily-summary
// snapshot, following the config-load/signal-handling shape of the
// teacher's main.go.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dxcluster/archive"
	"dxcluster/config"
	"dxcluster/engine"
	"dxcluster/reference"
	"dxcluster/report"
	"dxcluster/snapshot"
	"dxcluster/transport"
	"dxcluster/window"
)

// Version is set at build time.
var Version = "dev"

func main() {
	configPath := flag.String("c", "config.yaml", "path to config.yaml")
	brokerOverride := flag.String("u", "", "MQTT broker URL (overrides config)")
	debug := flag.Bool("d", false, "run the terminal status display")
	flag.Parse()

	fmt.Printf("skewd v%s starting...\n", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("skewd: config: %v", err)
	}
	if *brokerOverride != "" {
		cfg.Transport.BrokerURL = *brokerOverride
	}

	refs, err := reference.NewRegistry(cfg.Reference.Path)
	if err != nil {
		log.Fatalf("skewd: reference file: %v", err)
	}
	sched := reference.NewSchedule(cfg.Reference.RefreshHour, cfg.Reference.RefreshAfter)

	admission := cfg.Admission()
	eng := engine.New(engine.Config{
		WindowCapacity:   cfg.Window.Capacity,
		MaxSkimmers:      cfg.Skimmers.Max,
		Admission:        admission,
		Tolerances:       cfg.Tolerances(),
		InactiveAfterSec: int64(cfg.Activity.InactiveAfter.Seconds()),
		Coefficient:      cfg.Coefficient(),
	}, refs)

	var store *archive.Store
	if *cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive)
		if err != nil {
			log.Fatalf("skewd: archive: %v", err)
		}
		store.Start()
		defer store.Stop()
		log.Printf("skewd: archive enabled at %s (retention %dd)", cfg.Archive.Path, cfg.Archive.RetentionDays)
	}

	sub := transport.NewClient(cfg.Transport, func(c window.Candidate) {
		eng.Ingest(c)
		if store != nil {
			if s, ok := admission.Admit(c); ok {
				s.Reference = refs.Contains(s.De)
				store.Enqueue(s)
			}
		}
	})
	if err := sub.Connect(); err != nil {
		log.Fatalf("skewd: transport connect: %v", err)
	}
	defer sub.Disconnect()

	if *cfg.Publish.Enabled {
		go publishLoop(eng, sub, cfg.Transport.PublishTopic, time.Duration(cfg.Publish.IntervalSeconds)*time.Second)
	}

	go sweepLoop(eng, sched)

	if *debug {
		console := report.NewConsole()
		go func() {
			if err := console.Run(eng.Table, eng.Mon, time.Second); err != nil {
				log.Printf("skewd: console exited: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("skewd is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	fmt.Printf("\nreceived signal: %v, shutting down...\n", sig)
}

// sweepLoop runs the activity monitor's periodic pass and the daily
// reference-file refresh check every 15 seconds, per spec §4.6/§4.2.
func sweepLoop(eng *engine.Engine, sched *reference.Schedule) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for now := range ticker.C {
		eng.Sweep(now.Unix())
		eng.MaybeRefreshReferences(sched, now.Unix())
	}
}

// publishLoop periodically marshals the skimmer table to JSON and
// publishes it to topic, per spec §4.9.
func publishLoop(eng *engine.Engine, pub *transport.Client, topic string, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		payload, err := snapshot.Marshal(eng.Table)
		if err != nil {
			log.Printf("skewd: snapshot marshal: %v", err)
			continue
		}
		if err := pub.Publish(topic, payload); err != nil {
			log.Printf("skewd: publish: %v", err)
		}
	}
}
