// Command reassignd runs the coordinator's gRPC SchedulerSink endpoint: it
// accepts SetInitialState submissions produced by restore jobs (run either
// in-process or, when the CLI dials this daemon directly, from a remote
// driver invocation) and logs each one through terminalSink; the daemon does
// not write these submissions to the restore ledger itself.
//
// Deploying the resulting task state onto the actual stream-processing
// runtime is outside this core's scope; terminalSink below is the boundary
// where that integration would be wired in.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowstate/reassigner/internal/rpc"
	"github.com/flowstate/reassigner/internal/service"
	"github.com/flowstate/reassigner/pkg/config"
	"github.com/flowstate/reassigner/pkg/reassign"
	"github.com/flowstate/reassigner/pkg/utils"
)

var (
	configPath = flag.String("c", "", "Path to configuration file")
	version    = flag.Bool("v", false, "Print version and exit")
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// terminalSink is the daemon's SchedulerSink: the last stop before actual
// task deployment, which lives outside this core. It only logs; a real
// deployment says how to act on the snapshot (redeploying task state to the
// runtime it was restored for).
type terminalSink struct {
	logger utils.Logger
}

func (s *terminalSink) SetInitialState(vertex reassign.VertexId, subtask reassign.SubtaskIndex, snapshot reassign.TaskStateSnapshot, restoreCheckpointID uint64) error {
	s.logger.Info("accepted initial state for vertex=%s subtask=%d restore_checkpoint=%d operators=%d",
		vertex, subtask, restoreCheckpointID, len(snapshot.OperatorStates))
	return nil
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("reassignd version %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	logger := utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	utils.SetGlobalLogger(logger)

	logger.Info("starting reassignd...")
	logger.Info("version: %s, commit: %s, built: %s", Version, GitCommit, BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("coordinator version: %s", cfg.Coordinator.Version)
	logger.Info("restore ledger database: %s://%s:%d/%s", cfg.Database.Type, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	logger.Info("checkpoint metadata store: %s", cfg.Storage.Type)
	logger.Info("listening on %s", cfg.Scheduler.ListenAddr)

	if err := cfg.EnsureDataDir(); err != nil {
		logger.Error("failed to create data directory: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	svc, err := service.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create service: %v", err)
		os.Exit(1)
	}

	if err := svc.Initialize(ctx); err != nil {
		logger.Error("failed to initialize service: %v", err)
		os.Exit(1)
	}

	handler := rpc.NewServer(&terminalSink{logger: logger.Named("terminal-sink")})
	if err := svc.Start(ctx, handler); err != nil {
		logger.Error("failed to start service: %v", err)
		os.Exit(1)
	}

	logger.Info("reassignd started, waiting for restore submissions...")

	select {
	case sig := <-sigChan:
		logger.Info("received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down...")
	}

	if err := svc.Stop(); err != nil {
		logger.Error("error during shutdown: %v", err)
	}

	logger.Info("reassignd stopped")
}
