package main

import (
	"bytes"
	"flag"
	"os"
	"runtime/pprof"

	"github.com/kestrel/kestrel/internal/book"
	"github.com/kestrel/kestrel/internal/config"
	"github.com/kestrel/kestrel/internal/engine"
	"github.com/kestrel/kestrel/internal/logging"
	"github.com/kestrel/kestrel/internal/storage"
	"github.com/kestrel/kestrel/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	logPath    = flag.String("log", "", "write diagnostic logs to this file instead of stderr")
	debugFlag  = flag.Bool("debug", false, "enable verbose diagnostic logging")
)

func main() {
	flag.Parse()

	log := newLogger()

	if profilePath := profilePath(); profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Info("could not create CPU profile: %v", err)
		} else {
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				log.Info("could not start CPU profile: %v", err)
			} else {
				defer pprof.StopCPUProfile()
				log.Info("CPU profiling enabled, writing to %s", profilePath)
			}
		}
	}

	cfg := config.Default()
	cfg.DebugLogging = *debugFlag

	eng := engine.NewEngine(cfg.HashMB)

	store, err := storage.NewStorage()
	if err != nil {
		log.Info("persistent storage unavailable, continuing without it: %v", err)
		store = nil
	} else {
		defer store.Close()
		loadCachedBook(eng, store, log)
	}

	protocol := uci.New(eng, cfg, log, store)
	protocol.Run()
}

func newLogger() *logging.Logger {
	level := logging.Info
	if *debugFlag {
		level = logging.Debug
	}
	if *logPath == "" {
		return logging.New(level)
	}
	l, err := logging.NewFile(level, *logPath)
	if err != nil {
		fallback := logging.New(level)
		fallback.Info("could not open log file %q, logging to stderr: %v", *logPath, err)
		return fallback
	}
	return l
}

func profilePath() string {
	if *cpuprofile != "" {
		return *cpuprofile
	}
	return os.Getenv("CPUPROFILE")
}

// loadCachedBook restores a previously loaded opening book from the
// persistent store, if one was cached on an earlier run. Any failure
// here disables book loading for this run rather than aborting startup.
func loadCachedBook(eng *engine.Engine, store *storage.Storage, log *logging.Logger) {
	data, path, err := store.LoadBook()
	if err != nil {
		log.Info("failed to read cached opening book: %v", err)
		return
	}
	if data == nil {
		return
	}

	b, err := book.LoadPolyglotReader(bytes.NewReader(data))
	if err != nil {
		log.Info("cached opening book at %s is corrupt, ignoring: %v", path, err)
		return
	}
	eng.SetBook(b)
	log.Info("loaded cached opening book from %s (%d positions)", path, b.Size())
}
