package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate/reassigner/internal/topologyfile"
	"github.com/flowstate/reassigner/pkg/reassign"
)

var (
	verifyMetadataKey      string
	verifyTopology         string
	verifyAllowNonRestored bool
	verifyAudit            bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a checkpoint's preconditions against a topology without submitting anything",
	Long: `verify runs the Preconditions Checker against checkpoint metadata and a new
topology and reports the resulting diagnostics and any fatal error, without
invoking the Assignment Driver or touching any SchedulerSink. Pass --audit to
additionally list what the restore ledger already recorded for this
checkpoint, useful for confirming a prior restore's submissions.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyMetadataKey, "metadata", "m", "", "Checkpoint metadata key (required)")
	verifyCmd.Flags().StringVarP(&verifyTopology, "topology", "t", "", "Path to the new execution topology JSON file (required)")
	verifyCmd.Flags().BoolVar(&verifyAllowNonRestored, "allow-non-restored", false, "Allow state with no matching operator in the new topology")
	verifyCmd.Flags().BoolVar(&verifyAudit, "audit", false, "List submissions already recorded in the restore ledger for this checkpoint")

	verifyCmd.MarkFlagRequired("metadata")
	verifyCmd.MarkFlagRequired("topology")
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	comps, err := loadComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	ctx := context.Background()

	states, restoreCheckpointID, err := comps.metadata.LoadOperatorStates(ctx, verifyMetadataKey)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint metadata %s: %w", verifyMetadataKey, err)
	}

	topo, err := topologyfile.Load(verifyTopology)
	if err != nil {
		return err
	}

	diagnostics, err := reassign.CheckPreconditions(states, topo, reassign.Options{AllowNonRestoredState: verifyAllowNonRestored})

	log.Info("checkpoint %s: restore_checkpoint=%d operators=%d", verifyMetadataKey, restoreCheckpointID, states.Len())
	for _, d := range diagnostics {
		log.Info("  diagnostic: operator=%s kind=%s message=%s", d.OperatorID, d.Kind, d.Message)
	}

	if err != nil {
		log.Error("preconditions failed: %v", err)
		return err
	}
	log.Info("preconditions satisfied")

	if verifyAudit {
		submissions, aerr := comps.repo.SubmissionsFor(ctx, restoreCheckpointID)
		if aerr != nil {
			return fmt.Errorf("failed to load ledger submissions: %w", aerr)
		}
		log.Info("ledger has %d recorded submission(s) for restore_checkpoint=%d", len(submissions), restoreCheckpointID)
		for _, s := range submissions {
			log.Info("  vertex=%s subtask=%d operators=%d", s.Vertex, s.SubtaskIndex, s.OperatorCount)
		}
	}

	return nil
}
