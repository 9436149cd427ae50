package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowstate/reassigner/internal/coordinator"
	"github.com/flowstate/reassigner/internal/rpc"
	"github.com/flowstate/reassigner/pkg/parallel"
	"github.com/flowstate/reassigner/pkg/reassign"
)

var (
	restoreMetadataKey string
	restoreTopology    string
	restoreRemote      string
	restoreDialTimeout int
	restoreAllowNonRestored bool
	restoreJobsFile    string
	restoreWorkers     int
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Run the Assignment Driver against one or more checkpoints",
	Long: `restore loads checkpoint metadata and a new execution topology, runs the
Assignment Driver, and submits the resulting per-subtask state through a
SchedulerSink: either a local stdout sink (the default, for dry runs and
local testing) or a remote reassignd daemon reached over gRPC.`,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVarP(&restoreMetadataKey, "metadata", "m", "", "Checkpoint metadata key (object storage or local path, relative to configured storage root)")
	restoreCmd.Flags().StringVarP(&restoreTopology, "topology", "t", "", "Path to the new execution topology JSON file")
	restoreCmd.Flags().StringVar(&restoreRemote, "remote", "", "Address of a reassignd daemon to submit to (e.g. localhost:7070); defaults to a local stdout sink")
	restoreCmd.Flags().IntVar(&restoreDialTimeout, "dial-timeout", 5, "gRPC dial/call timeout in seconds, when --remote is set")
	restoreCmd.Flags().BoolVar(&restoreAllowNonRestored, "allow-non-restored", false, "Allow state with no matching operator in the new topology to be skipped instead of failing")

	restoreCmd.Flags().StringVar(&restoreJobsFile, "jobs", "", "Path to a JSON file listing multiple {metadata_key, topology} restore jobs to run concurrently")
	restoreCmd.Flags().IntVar(&restoreWorkers, "workers", 4, "Number of concurrent restore jobs when --jobs is used")
}

// stdoutSink is the CLI's default SchedulerSink: it has nowhere to deploy
// state to, so it just reports what the Assignment Driver would submit.
type stdoutSink struct{}

func (stdoutSink) SetInitialState(vertex reassign.VertexId, subtask reassign.SubtaskIndex, snapshot reassign.TaskStateSnapshot, restoreCheckpointID uint64) error {
	fmt.Printf("vertex=%s subtask=%d restore_checkpoint=%d operators=%d\n",
		vertex, subtask, restoreCheckpointID, len(snapshot.OperatorStates))
	return nil
}

func buildSink() (reassign.SchedulerSink, func(), error) {
	if restoreRemote == "" {
		return stdoutSink{}, func() {}, nil
	}

	client, conn, err := rpc.Dial(restoreRemote, time.Duration(restoreDialTimeout)*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", restoreRemote, err)
	}
	return client, func() { conn.Close() }, nil
}

type jobSpec struct {
	MetadataKey string `json:"metadata_key"`
	Topology    string `json:"topology"`
}

func runRestore(cmd *cobra.Command, args []string) error {
	comps, err := loadComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	sink, closeSink, err := buildSink()
	if err != nil {
		return err
	}
	defer closeSink()

	coord := comps.newCoordinator(sink)

	if restoreJobsFile != "" {
		return runBatchRestore(coord)
	}

	if restoreMetadataKey == "" || restoreTopology == "" {
		return fmt.Errorf("--metadata and --topology are required unless --jobs is used")
	}

	job, err := loadTopologyJob(restoreMetadataKey, restoreTopology, restoreAllowNonRestored)
	if err != nil {
		return err
	}

	result := coord.RunRestore(context.Background(), job)
	printResult(result)
	if result.Err != nil {
		return result.Err
	}
	return nil
}

func runBatchRestore(coord *coordinator.Coordinator) error {
	data, err := os.ReadFile(restoreJobsFile)
	if err != nil {
		return fmt.Errorf("failed to read jobs file: %w", err)
	}
	var specs []jobSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("failed to parse jobs file: %w", err)
	}
	if len(specs) == 0 {
		return fmt.Errorf("jobs file %s contains no jobs", restoreJobsFile)
	}

	jobs := make([]coordinator.Job, len(specs))
	for i, spec := range specs {
		job, err := loadTopologyJob(spec.MetadataKey, spec.Topology, restoreAllowNonRestored)
		if err != nil {
			return fmt.Errorf("job %d (%s): %w", i, spec.MetadataKey, err)
		}
		jobs[i] = job
	}

	pool := parallel.NewWorkerPool[coordinator.Job, coordinator.JobResult](
		parallel.DefaultPoolConfig().WithWorkers(restoreWorkers),
	)
	results := pool.ExecuteFunc(context.Background(), jobs, func(ctx context.Context, job coordinator.Job) (coordinator.JobResult, error) {
		result := coord.RunRestore(ctx, job)
		return result, result.Err
	})

	var failed int
	for _, r := range results {
		printResult(r.Result)
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d restore jobs failed", failed, len(results))
	}
	return nil
}
