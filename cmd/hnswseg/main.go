package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/ken/hnswseg/internal/config"
	"github.com/ken/hnswseg/internal/logging"
	"github.com/ken/hnswseg/pkg/core/distance"
	"github.com/ken/hnswseg/pkg/core/vector"
	"github.com/ken/hnswseg/pkg/segment"
)

const (
	appName    = "hnswseg"
	appVersion = "0.1.0"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Display version information")
		configFile  = flag.String("config", "config.yaml", "Path to configuration file")
		metricName  = flag.String("metric", "euclidean", "Distance metric to use (euclidean, cosine, dotproduct, manhattan)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.Console(cfg.Logging.Level)
	if !cfg.Logging.Console {
		log = logging.New(cfg.Logging.Level, nil)
	}

	metricType := distance.MetricType(*metricName)
	metric, err := distance.GetMetric(metricType)
	if err != nil {
		fmt.Printf("invalid distance metric: %v\n", err)
		os.Exit(1)
	}

	seg := segment.New(cfg.ToSegmentConfig(), metric, segment.WithLogger(log))

	if _, err := os.Stat(cfg.Storage.SnapshotDir); err == nil {
		if err := seg.Load(cfg.Storage.SnapshotDir); err != nil {
			log.Warn().Err(err).Msg("no usable snapshot found, starting empty")
		}
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		cmdAdd(seg, args[1:])
	case "random":
		cmdRandom(seg, args[1:])
	case "search":
		cmdSearch(seg, args[1:])
	case "remove":
		cmdRemove(seg, args[1:])
	case "size":
		fmt.Printf("%d live vectors\n", seg.Size())
	case "snapshot":
		if err := seg.Snapshot(cfg.Storage.SnapshotDir); err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot written to %s\n", cfg.Storage.SnapshotDir)
	default:
		fmt.Printf("unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func cmdAdd(seg *segment.Segment, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: hnswseg add <external-id> <value1,value2,...>")
		os.Exit(1)
	}
	extID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid external id: %s\n", args[0])
		os.Exit(1)
	}
	valueStrs := strings.Split(args[1], ",")
	values := make([]float32, len(valueStrs))
	for i, s := range valueStrs {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			fmt.Printf("invalid vector value at index %d: %s\n", i, s)
			os.Exit(1)
		}
		values[i] = float32(v)
	}
	item := segment.Item{ExternalID: segment.ExternalID(extID), Vector: vector.New(values)}
	if ok := seg.Add(item); !ok {
		fmt.Println("add rejected")
		os.Exit(1)
	}
	fmt.Printf("added vector %d with dimension %d\n", extID, len(values))
}

func cmdRandom(seg *segment.Segment, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: hnswseg random <external-id> <dimension>")
		os.Exit(1)
	}
	extID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid external id: %s\n", args[0])
		os.Exit(1)
	}
	dim, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("invalid dimension: %s\n", args[1])
		os.Exit(1)
	}
	r := rand.New(rand.NewSource(int64(extID)))
	item := segment.Item{ExternalID: segment.ExternalID(extID), Vector: vector.Random(r, dim)}
	if ok := seg.Add(item); !ok {
		fmt.Println("add rejected")
		os.Exit(1)
	}
	fmt.Printf("created random vector %d with dimension %d\n", extID, dim)
}

func cmdSearch(seg *segment.Segment, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: hnswseg search <value1,value2,...> <k> [ef]")
		os.Exit(1)
	}
	valueStrs := strings.Split(args[0], ",")
	values := make([]float32, len(valueStrs))
	for i, s := range valueStrs {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			fmt.Printf("invalid vector value at index %d: %s\n", i, s)
			os.Exit(1)
		}
		values[i] = float32(v)
	}
	k, err := strconv.Atoi(args[1])
	if err != nil || k < 1 {
		fmt.Printf("invalid k: %s\n", args[1])
		os.Exit(1)
	}
	ef := k * 2
	if len(args) >= 3 {
		ef, err = strconv.Atoi(args[2])
		if err != nil {
			fmt.Printf("invalid ef: %s\n", args[2])
			os.Exit(1)
		}
	}

	results := seg.SearchKNN(vector.New(values), k, ef)
	fmt.Printf("found %d results:\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %d (distance: %.6f)\n", i+1, r.ExternalID, r.Distance)
	}
}

func cmdRemove(seg *segment.Segment, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: hnswseg remove <internal-id>")
		os.Exit(1)
	}
	internalID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("invalid internal id: %s\n", args[0])
		os.Exit(1)
	}
	if ok := seg.Remove(segment.InternalID(internalID)); !ok {
		fmt.Println("remove failed")
		os.Exit(1)
	}
	fmt.Printf("removed node %d\n", internalID)
}

func printUsage() {
	fmt.Printf("%s - a concurrent in-memory HNSW segment\n\n", appName)
	fmt.Println("usage:")
	fmt.Println("  hnswseg [flags] <command>")
	fmt.Println("\nflags:")
	flag.PrintDefaults()
	fmt.Println("\ncommands:")
	fmt.Println("  add <external-id> <v1,v2,...>     add a vector")
	fmt.Println("  random <external-id> <dimension>  add a random vector")
	fmt.Println("  search <v1,v2,...> <k> [ef]        k-nearest neighbor search")
	fmt.Println("  remove <internal-id>               remove a vector")
	fmt.Println("  size                                report live vector count")
	fmt.Println("  snapshot                            persist the segment to disk")
}
