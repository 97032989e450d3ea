package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"example.com/wiblgate/internal/common"
	"example.com/wiblgate/internal/config"
	"example.com/wiblgate/internal/manifest"
	"example.com/wiblgate/internal/report"
	"example.com/wiblgate/internal/timeline"
)

func setupLogging(cfg config.Config) error {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile := filepath.Join(cfg.Logs.Directory, "wibld.log")
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	common.SetLogger(log.New(log.Writer(), "[wibld] ", log.LstdFlags|log.Lmicroseconds).Printf)
	return nil
}

// spooler watches the spool directory and hands each new file to the worker
// pool exactly once. Completed inputs are moved to done/ or failed/ so they
// never reappear in a scan.
type spooler struct {
	cfg  config.Config
	jobs chan string

	mu       sync.Mutex
	inflight map[string]struct{}
}

func newSpooler(cfg config.Config) *spooler {
	return &spooler{
		cfg:      cfg,
		jobs:     make(chan string),
		inflight: make(map[string]struct{}),
	}
}

func (s *spooler) scan() {
	files, err := filepath.Glob(filepath.Join(s.cfg.SpoolDir, "*.wibl"))
	if err != nil {
		common.Logf("spool scan: %v", err)
		return
	}
	for _, f := range files {
		s.mu.Lock()
		_, busy := s.inflight[f]
		if !busy {
			s.inflight[f] = struct{}{}
		}
		s.mu.Unlock()
		if busy {
			continue
		}
		s.jobs <- f
	}
}

func (s *spooler) finish(path string) {
	s.mu.Lock()
	delete(s.inflight, path)
	s.mu.Unlock()
}

func (s *spooler) worker(wg *sync.WaitGroup) {
	defer wg.Done()
	for in := range s.jobs {
		s.processOne(in)
		s.finish(in)
	}
}

func (s *spooler) processOne(in string) {
	start := time.Now()
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	resultOut := filepath.Join(s.cfg.OutputDir, base+".json")
	summaryOut := filepath.Join(s.cfg.OutputDir, base+".summary.json")
	manifestOut := filepath.Join(s.cfg.OutputDir, base+".manifest.json")

	err := s.convert(in, resultOut, summaryOut, manifestOut)
	if err != nil {
		common.Logf("%s: %v", in, err)
		s.moveTo(in, "failed")
		return
	}
	common.Logf("%s -> %s (%s)", in, resultOut, time.Since(start).Round(time.Millisecond))
	s.moveTo(in, "done")
}

func (s *spooler) convert(in, resultOut, summaryOut, manifestOut string) error {
	eng := timeline.NewEngine(timeline.Options{
		QuantumBits: s.cfg.QuantumBits,
		FaultLimit:  s.cfg.FaultLimit,
	})
	res, err := eng.ProcessFile(in)
	if err != nil {
		return err
	}
	if err := report.SaveResultJSON(res, resultOut); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	sum, err := report.BuildSummary(in, res, eng)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := report.SaveSummaryJSON(sum, summaryOut); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	m, err := manifest.Build([]string{in, resultOut, summaryOut})
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := manifest.Save(m, manifestOut); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *spooler) moveTo(in, sub string) {
	dst := filepath.Join(s.cfg.SpoolDir, sub, filepath.Base(in))
	if err := os.Rename(in, dst); err != nil {
		common.Logf("move %s to %s: %v", in, sub, err)
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	for _, dir := range []string{
		cfg.SpoolDir,
		filepath.Join(cfg.SpoolDir, "done"),
		filepath.Join(cfg.SpoolDir, "failed"),
		cfg.OutputDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create dir %s: %v", dir, err)
		}
	}
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("setup logging: %v", err)
	}

	sp := newSpooler(cfg)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go sp.worker(&wg)
	}

	log.Printf("wibld watching %s (%d workers, poll %ds)", cfg.SpoolDir, cfg.Concurrency, cfg.PollSeconds)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer ticker.Stop()
	sp.scan()
	for {
		select {
		case <-ticker.C:
			sp.scan()
		case <-shutdown:
			close(sp.jobs)
			wg.Wait()
			log.Println("wibld stopped")
			return
		}
	}
}
