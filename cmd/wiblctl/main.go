package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"example.com/wiblgate/internal/common"
	"example.com/wiblgate/internal/manifest"
	"example.com/wiblgate/internal/report"
	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/timeline"
	"example.com/wiblgate/internal/wibl"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "process":
		processCmd(os.Args[2:])
	case "inspect":
		inspectCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "version":
		fmt.Printf("wiblctl %s (built %s), serialiser version %d.%d\n",
			version, buildDate, wibl.SerialiserVersionMajor, wibl.SerialiserVersionMinor)
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`wiblctl %s (built %s) <command> [options]

Commands:
  process   --in <file.wibl> [--out <result.json>] [--summary <summary.json>] [--pdf <summary.pdf>] [--manifest <manifest.json>] [--quantum-bits <n>] [--fault-limit <n>] [--metrics] [--progress]
  inspect   --in <file.wibl>
  report    --summary <summary.json> --pdf <summary.pdf>
  manifest  --inputs <comma-separated> --out <manifest.json>
  batch     --in <dir> --out-dir <dir> [--concurrency <n>] [--quantum-bits <n>] [--fault-limit <n>]
  version
`, version, buildDate)
}

type outputSet struct {
	result   string
	summary  string
	pdf      string
	manifest string
}

func defaultOutputs(in, outDir string) outputSet {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	if outDir == "" {
		outDir = filepath.Dir(in)
	}
	return outputSet{
		result:  filepath.Join(outDir, base+".json"),
		summary: filepath.Join(outDir, base+".summary.json"),
	}
}

// processFile runs the full pipeline for one file and writes the requested
// output set.
func processFile(in string, outs outputSet, quantumBits uint, faultLimit int, metrics *common.Metrics) error {
	eng := timeline.NewEngine(timeline.Options{
		QuantumBits: quantumBits,
		FaultLimit:  faultLimit,
		Metrics:     metrics,
	})
	res, err := eng.ProcessFile(in)
	if err != nil {
		return err
	}
	if err := report.SaveResultJSON(res, outs.result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	s, err := report.BuildSummary(in, res, eng)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := report.SaveSummaryJSON(s, outs.summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	written := []string{outs.result, outs.summary}
	if outs.pdf != "" {
		if err := report.SaveSummaryPDF(s, outs.pdf); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		written = append(written, outs.pdf)
	}
	if outs.manifest != "" {
		m, err := manifest.Build(append([]string{in}, written...))
		if err != nil {
			return fmt.Errorf("build manifest: %w", err)
		}
		if err := manifest.Save(m, outs.manifest); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	return nil
}

func processCmd(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	in := fs.String("in", "", "input .wibl file")
	out := fs.String("out", "", "aligned observation output (default <in>.json)")
	summaryOut := fs.String("summary", "", "summary output (default <in>.summary.json)")
	pdfOut := fs.String("pdf", "", "summary PDF output")
	manifestOut := fs.String("manifest", "", "manifest covering the output set")
	quantumBits := fs.Uint("quantum-bits", timeline.DefaultQuantumBits, "elapsed counter width in bits")
	faultLimit := fs.Int("fault-limit", stats.DefaultFaultLimit, "per-name fault logging limit")
	metricsFlag := fs.Bool("metrics", false, "print throughput metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	outs := defaultOutputs(*in, "")
	if *out != "" {
		outs.result = *out
	}
	if *summaryOut != "" {
		outs.summary = *summaryOut
	}
	outs.pdf = *pdfOut
	outs.manifest = *manifestOut

	var metrics *common.Metrics
	stopProgress := func() {}
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.Start()
		if *progressFlag {
			stopProgress = common.StartProgressPrinter(os.Stderr, metrics, time.Second)
		}
	}

	err := processFile(*in, outs, *quantumBits, *faultLimit, metrics)
	stopProgress()
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		fmt.Println("process:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", outs.result)
	if *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Printf("%d packets, %d faults, %s in %s (%.2f MiB/s)\n",
			snap.Packets, snap.Faults, common.FormatBytes(snap.Bytes),
			snap.Duration.Round(time.Millisecond),
			snap.ThroughputBytesPerSecond()/(1024*1024))
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "input .wibl file")
	faultLimit := fs.Int("fault-limit", stats.DefaultFaultLimit, "per-name fault logging limit")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	f, err := os.Open(*in)
	if err != nil {
		fmt.Println("open:", err)
		os.Exit(1)
	}
	defer f.Close()

	st := stats.New(*faultLimit)
	var (
		ver     *wibl.SerialiserVersion
		meta    *wibl.Metadata
		unknown int
	)
	r := bufio.NewReader(f)
	for {
		pkt, err := wibl.Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, wibl.ErrUnknownPacketType) {
				unknown++
				continue
			}
			fmt.Println("decode:", err)
			os.Exit(1)
		}
		switch p := pkt.(type) {
		case *wibl.SerialiserVersion:
			ver = p
			st.Observed(pkt.Type().String())
		case *wibl.Metadata:
			meta = p
			st.Observed(pkt.Type().String())
		case *wibl.SerialString:
			if tag, ok := timeline.SentenceTag(p.Payload); ok {
				st.Observed(tag)
			} else {
				st.Fault(wibl.TypeSerialString.String(), stats.ShortMessage,
					fmt.Sprintf("%d chars", len(p.Payload)))
			}
		default:
			st.Observed(pkt.Type().String())
		}
	}

	if ver != nil {
		fmt.Printf("serialiser version: %d.%d\n", ver.Major, ver.Minor)
	}
	if meta != nil {
		fmt.Printf("logger: %s (%s)\n", meta.LoggerName, meta.UniqueID)
	}
	if src, err := timeline.SelectTimeSource(st); err == nil {
		fmt.Printf("time source: %s\n", src)
	} else {
		fmt.Println("time source: none usable")
	}
	if unknown > 0 {
		fmt.Printf("unknown packet types skipped: %d\n", unknown)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOBSERVED\tFAULTS")
	for _, c := range st.Snapshot() {
		fmt.Fprintf(w, "%s\t%d\t%d\n", c.Name, c.Observed, c.Faults)
	}
	w.Flush()
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	summaryPath := fs.String("summary", "", "summary JSON file")
	pdfOut := fs.String("pdf", "summary.pdf", "PDF output")
	fs.Parse(args)

	if *summaryPath == "" {
		fmt.Println("required: --summary")
		os.Exit(1)
	}
	s, err := report.LoadSummaryJSON(*summaryPath)
	if err != nil {
		fmt.Println("load summary:", err)
		os.Exit(1)
	}
	if err := report.SaveSummaryPDF(s, *pdfOut); err != nil {
		fmt.Println("write pdf:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *pdfOut)
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated input files")
	out := fs.String("out", "manifest.json", "manifest output")
	fs.Parse(args)

	if *inputs == "" {
		fmt.Println("required: --inputs")
		os.Exit(1)
	}
	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	m, err := manifest.Build(paths)
	if err != nil {
		fmt.Println("build manifest:", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		fmt.Println("write manifest:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d items)\n", *out, len(m.Items))
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", "", "input directory")
	outDir := fs.String("out-dir", "", "output directory")
	concurrency := fs.Int("concurrency", runtime.NumCPU(), "maximum concurrent files")
	quantumBits := fs.Uint("quantum-bits", timeline.DefaultQuantumBits, "elapsed counter width in bits")
	faultLimit := fs.Int("fault-limit", stats.DefaultFaultLimit, "per-name fault logging limit")
	fs.Parse(args)

	if *inDir == "" || *outDir == "" {
		fmt.Println("required: --in and --out-dir")
		os.Exit(1)
	}
	files, err := filepath.Glob(filepath.Join(*inDir, "*.wibl"))
	if err != nil {
		fmt.Println("list inputs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("no .wibl files in", *inDir)
		return
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Println("output dir:", err)
		os.Exit(1)
	}
	if *concurrency <= 0 {
		*concurrency = 1
	}

	jobs := make(chan string)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				outs := defaultOutputs(in, *outDir)
				if err := processFile(in, outs, *quantumBits, *faultLimit, nil); err != nil {
					common.Logf("batch: %s: %v", in, err)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				common.Logf("batch: %s -> %s", in, outs.result)
			}
		}()
	}
	for _, in := range files {
		jobs <- in
	}
	close(jobs)
	wg.Wait()

	fmt.Printf("processed %d files, %d failed\n", len(files), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
