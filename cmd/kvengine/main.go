package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leengari/kvengine/internal/engine"
	"github.com/leengari/kvengine/internal/logging"
	"github.com/leengari/kvengine/internal/metrics"
	"github.com/leengari/kvengine/internal/storage/config"
)

func main() {
	path := flag.String("db", "kvengine.db", "path to the database file")
	duration := flag.Duration("for", 2*time.Second, "how long to drive the submission loop")
	flag.Parse()

	logger, closeFn := logging.SetupLogger()
	defer closeFn()
	slog.SetDefault(logger)

	slog.Info("starting kvengine harness", "db", *path)

	m := metrics.New("kvengine")

	cfg := config.Default()
	eng, err := openOrFormat(*path, cfg, m, logger)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("shutdown fsync failed", "error", err)
		}
	}()

	eng.Submit(&engine.Submission{Op: engine.OpSet, Key: []byte("hello"), Value: []byte("world")})
	eng.Submit(&engine.Submission{Op: engine.OpCheck})

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		drained, err := eng.RunIteration()
		if err != nil {
			slog.Error("submission loop failed", "error", err)
			os.Exit(1)
		}
		if !drained {
			time.Sleep(10 * time.Millisecond)
		}
	}

	summary := eng.Summarize()
	slog.Info("harness finished", "queued", eng.QueueLen())
	fmt.Printf("kvengine harness run complete: epoch=%d checkpointLSN=%d tables=%d walUsed=%d memtable=%d\n",
		summary.Superblock.Epoch, summary.Superblock.CheckpointLSN, summary.TableCount, summary.WALUsed, summary.MemtableLen)
}

func openOrFormat(path string, cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*engine.Engine, error) {
	if _, err := os.Stat(path); err == nil {
		return engine.Open(path, cfg, m, log)
	}
	return engine.Format(path, cfg, m, log)
}
