// Command skewbatch is the offline two-pass bootstrap analyzer (spec.md
// §4.8/§6): it replays an RBN CSV archive against a reference file, writes
// a regenerated reference file grouped by accuracy tier, and prints a
// console report, mirroring the flag surface of the original's skew.c.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	jsoniter "github.com/json-iterator/go"

	"dxcluster/bootstrap"
	"dxcluster/config"
	"dxcluster/correlate"
	"dxcluster/reference"
	"dxcluster/report"
	"dxcluster/snapshot"
	"dxcluster/transport"
	"dxcluster/window"
)

func main() {
	filename := flag.String("f", "", "RBN archive CSV filename (required)")
	rtty := flag.Bool("r", false, "analyze RTTY spots instead of CW")
	minSNR := flag.Int("n", 6, "minimum SNR to use a spot")
	minSpots := flag.Int("m", 1, "minimum spots from a skimmer to qualify for analysis")
	maxApart := flag.Int("x", 30, "maximum seconds apart from a reference spot")
	refFile := flag.String("reference", "reference", "reference callsign file (input, then regenerated in place; rreference with -r unless set)")
	target := flag.String("t", "", "narrow the report to a single skimmer callsign")
	sortFlag := flag.Bool("s", false, "sort skimmers by deviation instead of callsign")
	worst := flag.Bool("w", false, "with -s, worst-first instead of best-first")
	web := flag.Bool("web", false, "emit the leaner web-friendly report layout")
	quiet := flag.Bool("q", false, "suppress the stderr copy of the report")
	debug := flag.Bool("d", false, "verbose: log progress through both analysis passes")
	publish := flag.String("publish", "", "MQTT broker URL to publish the report JSON to (optional)")
	publishTopic := flag.String("publish-topic", "SKEW_BATCH", "MQTT topic for -publish")
	flag.Parse()

	if *filename == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -f filename [-dshqrw] [-t callsign] [-n minsnr] [-m minspots] [-x maxsec]\n", os.Args[0])
		os.Exit(1)
	}

	mode := "CW"
	if *rtty {
		mode = "RTTY"
		refSet := false
		flag.Visit(func(f *flag.Flag) { refSet = refSet || f.Name == "reference" })
		if !refSet {
			*refFile = "rreference"
		}
	}

	anchors, err := reference.NewRegistry(*refFile)
	if err != nil {
		log.Fatalf("skewbatch: reference file: %v", err)
	}
	if *debug {
		log.Printf("skewbatch: loaded %d anchor callsigns from %s", anchors.Count(), *refFile)
	}

	records, err := bootstrap.LoadArchive(*filename)
	if err != nil {
		log.Fatalf("skewbatch: archive: %v", err)
	}
	if *debug {
		log.Printf("skewbatch: loaded %d archive records from %s (mode=%s)", len(records), *filename, mode)
	}

	cfg := bootstrap.Config{
		WindowCapacity: window.DefaultCapacity,
		Admission: window.AdmissionPolicy{
			MinSNR:  *minSNR,
			MinFreq: 1800,
			Mode:    mode,
		},
		Tolerances: correlate.Tolerances{
			MaxErrKHz: 0.5,
			MaxErrPPM: 60,
			MaxApart:  int64(*maxApart),
		},
		MinRefSpots: *minSpots,
	}

	if *debug {
		log.Printf("skewbatch: pass 1: correlating against %d anchor callsigns", anchors.Count())
	}
	pass1 := bootstrap.RunPass(records, anchors, cfg)
	if *debug {
		log.Printf("skewbatch: pass 1: %d total, %d used, %d reference spots", pass1.TotalSpots, pass1.UsedSpots, pass1.RefSpots)
	}
	summaries1 := bootstrap.Summarize(pass1)

	if err := bootstrap.WriteReferenceFile(*refFile, summaries1, cfg.MinRefSpots); err != nil {
		log.Fatalf("skewbatch: regenerate reference file: %v", err)
	}
	refs2, err := reference.NewRegistry(*refFile)
	if err != nil {
		log.Fatalf("skewbatch: load regenerated reference file: %v", err)
	}
	if *debug {
		log.Printf("skewbatch: regenerated %s: %d qualifying skimmers", *refFile, refs2.Count())
		log.Printf("skewbatch: pass 2: correlating against %d reference callsigns", refs2.Count())
	}

	pass2 := bootstrap.RunPass(records, refs2, cfg)
	if *debug {
		log.Printf("skewbatch: pass 2: %d total, %d used, %d reference spots", pass2.TotalSpots, pass2.UsedSpots, pass2.RefSpots)
	}
	result := &bootstrap.Report{
		Skimmers:   bootstrap.Summarize(pass2),
		TotalSpots: pass2.TotalSpots,
		UsedSpots:  pass2.UsedSpots,
		RefSpots:   pass2.RefSpots,
		FirstSpot:  pass2.FirstSpot,
		LastSpot:   pass2.LastSpot,
	}

	order := report.SortByCall
	if *sortFlag {
		order = report.SortByBest
		if *worst {
			order = report.SortByWorst
		}
	}

	opts := report.BatchOptions{
		Sort:      order,
		Web:       *web,
		Target:    *target,
		MinSpots:  *minSpots,
		MaxApart:  *maxApart,
		MinSNR:    *minSNR,
		MaxErrKHz: 0.5,
		Mode:      mode,
		Quiet:     *quiet,
	}
	report.WriteBatchReport(os.Stdout, os.Stderr, os.Stdout.Fd(), result, opts)

	if *publish != "" {
		publishResult(result, *publish, *publishTopic)
	}
}

// batchNode is the JSON shape published for one batch-analyzed skimmer: the
// node and ref fields of the streaming publisher's snapshot.Node plus a flat
// consolidated skew and quality. It carries no time, no count, and no
// per-band breakdown, so it is not the snapshot.Node shape.
type batchNode struct {
	Call string  `json:"node"`
	Ref  bool    `json:"ref"`
	Skew float64 `json:"skew"`
	Qual int     `json:"qual"`
}

// publishResult sends the batch report as a JSON array of batchNode objects
// to topic on an MQTT broker (SPEC_FULL.md's supplemented -publish batch
// flag).
func publishResult(result *bootstrap.Report, brokerURL, topic string) {
	nodes := make([]batchNode, 0, len(result.Skimmers))
	for _, s := range result.Skimmers {
		nodes = append(nodes, batchNode{
			Call: s.Call,
			Ref:  s.Reference,
			Skew: s.AvdevPPM,
			Qual: snapshot.Quality(s.TotalCount),
		})
	}
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(nodes)
	if err != nil {
		log.Printf("skewbatch: marshal publish payload: %v", err)
		return
	}

	client := transport.NewClient(config.TransportConfig{
		BrokerURL:      brokerURL,
		ClientIDPrefix: "skewbatch",
	}, nil)
	if err := client.Connect(); err != nil {
		log.Printf("skewbatch: publish connect: %v", err)
		return
	}
	defer client.Disconnect()
	if err := client.Publish(topic, payload); err != nil {
		log.Printf("skewbatch: publish: %v", err)
	}
}
