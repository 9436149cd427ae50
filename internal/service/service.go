// Package service wires the coordinator's components together: the restore
// ledger database, the checkpoint metadata store, and the gRPC server that
// exposes the SchedulerSink the Assignment Driver submits through.
package service

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"gorm.io/gorm"

	"github.com/flowstate/reassigner/internal/coordinator"
	"github.com/flowstate/reassigner/internal/ledger"
	"github.com/flowstate/reassigner/internal/metadatastore"
	"github.com/flowstate/reassigner/internal/rpc"
	"github.com/flowstate/reassigner/pkg/config"
	"github.com/flowstate/reassigner/pkg/reassign"
	"github.com/flowstate/reassigner/pkg/utils"
)

// Service is the top-level application wiring: database, metadata store,
// coordinator, and the gRPC server that exposes it.
type Service struct {
	config *config.Config
	logger utils.Logger

	db          *gorm.DB
	repo        ledger.Repository
	metadata    *metadatastore.Store
	coordinator *coordinator.Coordinator

	grpcServer *grpc.Server
	listener   net.Listener

	running bool
}

// New creates a Service from cfg. It does not connect to anything yet; call
// Initialize for that.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Service{
		config: cfg,
		logger: logger.Named("service"),
	}, nil
}

// Initialize connects the restore ledger database, builds the checkpoint
// metadata store, and assembles the coordinator. Start still needs to be
// called to begin serving.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("initializing service components...")

	db, err := ledger.NewGormDB(s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize restore ledger database: %w", err)
	}
	s.db = db
	s.repo = ledger.NewGormRepository(db)

	metadata, err := metadatastore.NewFromConfig(&s.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize checkpoint metadata store: %w", err)
	}
	s.metadata = metadata

	s.coordinator = coordinator.New(metadata, s.repo, nil, s.logger, s.config.Coordinator.MaxWorker)

	s.logger.Info("service components initialized")
	return nil
}

// SetSink assigns the scheduler sink the coordinator submits reassigned
// state to, decoupled from Initialize because the sink's concrete type
// (an in-process deployer, or an rpc.Client dialed to a remote daemon) varies
// by deployment.
func (s *Service) SetSink(sink reassign.SchedulerSink) {
	s.coordinator = coordinator.New(s.metadata, s.repo, sink, s.logger, s.config.Coordinator.MaxWorker)
}

// Coordinator returns the assembled coordinator, for the CLI and the gRPC
// server handler to submit restore jobs through.
func (s *Service) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

// Start begins serving the SchedulerSink gRPC endpoint on the configured
// listen address. The server accepts SetInitialState calls from the
// Assignment Driver's sink and dispatches them to handler; the sink set by
// SetSink is not involved.
func (s *Service) Start(ctx context.Context, handler rpc.SchedulerSinkServer) error {
	s.logger.Info("starting gRPC server on %s...", s.config.Scheduler.ListenAddr)

	listener, err := net.Listen("tcp", s.config.Scheduler.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Scheduler.ListenAddr, err)
	}
	s.listener = listener

	s.grpcServer = grpc.NewServer()
	rpc.RegisterSchedulerSinkServer(s.grpcServer, handler)

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			s.logger.Error("gRPC server stopped: %v", err)
		}
	}()

	s.running = true
	s.logger.Info("service started successfully")
	return nil
}

// Stop stops the gRPC server gracefully and closes the ledger database.
func (s *Service) Stop() error {
	s.logger.Info("stopping service...")

	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				s.logger.Error("failed to close ledger database: %v", err)
			}
		}
	}

	s.running = false
	s.logger.Info("service stopped")
	return nil
}

// IsRunning reports whether Start has completed successfully.
func (s *Service) IsRunning() bool {
	return s.running
}

// HealthCheck pings the restore ledger database.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("ledger database health check failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger database health check failed: %w", err)
	}
	return nil
}
