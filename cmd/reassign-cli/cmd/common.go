package cmd

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/flowstate/reassigner/internal/coordinator"
	"github.com/flowstate/reassigner/internal/ledger"
	"github.com/flowstate/reassigner/internal/metadatastore"
	"github.com/flowstate/reassigner/internal/topologyfile"
	"github.com/flowstate/reassigner/pkg/config"
	"github.com/flowstate/reassigner/pkg/reassign"
)

// components bundles the pieces every restore-driving command needs: the
// loaded config, the ledger database and repository, and the checkpoint
// metadata store. newCoordinator wires them to whatever sink the command
// builds.
type components struct {
	cfg      *config.Config
	db       *gorm.DB
	repo     ledger.Repository
	metadata *metadatastore.Store
}

func loadComponents() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := ledger.NewGormDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open restore ledger: %w", err)
	}

	metadata, err := metadatastore.NewFromConfig(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint metadata store: %w", err)
	}

	return &components{
		cfg:      cfg,
		db:       db,
		repo:     ledger.NewGormRepository(db),
		metadata: metadata,
	}, nil
}

func (c *components) close() {
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (c *components) newCoordinator(sink reassign.SchedulerSink) *coordinator.Coordinator {
	return coordinator.New(c.metadata, c.repo, sink, GetLogger(), c.cfg.Coordinator.MaxWorker)
}

// loadTopologyJob reads the topology file and builds a coordinator.Job for
// metadataKey, folding in the --allow-non-restored flag's precondition option.
func loadTopologyJob(metadataKey, topologyPath string, allowNonRestoredState bool) (coordinator.Job, error) {
	topo, err := topologyfile.Load(topologyPath)
	if err != nil {
		return coordinator.Job{}, err
	}
	return coordinator.Job{
		MetadataKey: metadataKey,
		Topology:    topo,
		Options:     reassign.Options{AllowNonRestoredState: allowNonRestoredState},
	}, nil
}

// printResult renders one restore job's outcome to the CLI's logger.
func printResult(result coordinator.JobResult) {
	log := GetLogger()
	if result.Err != nil {
		log.Error("restore %s failed: %v", result.MetadataKey, result.Err)
		return
	}
	log.Info("restore %s: restore_checkpoint=%d submitted_vertices=%d submitted_subtasks=%d",
		result.MetadataKey, result.RestoreCheckpointID, len(result.SubmittedVertices), result.SubmittedCount)
	for _, d := range result.Diagnostics {
		log.Info("  diagnostic: operator=%s kind=%s message=%s", d.OperatorID, d.Kind, d.Message)
	}
}
