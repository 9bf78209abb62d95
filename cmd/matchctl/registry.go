// cmd/matchctl/registry.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"business-matching-workers/internal/common/config"
	apperrors "business-matching-workers/internal/common/errors"
	"business-matching-workers/internal/common/validation"
	cms "business-matching-workers/internal/workers/matching/calculate-match-score"
	nmp "business-matching-workers/internal/workers/matching/notify-match-partner"
	rpm "business-matching-workers/internal/workers/matching/rank-partner-matches"
	rmd "business-matching-workers/internal/workers/matching/record-match-decision"
	"business-matching-workers/pkg/registry"
)

const registryVersion = "1.0.0"

type activityDef struct {
	taskType    string
	displayName string
	description string
	schema      validation.Schema
	errorCodes  []apperrors.ErrorCode
	tags        []string
}

func matchingActivities() []activityDef {
	return []activityDef{
		{
			taskType:    cms.TaskType,
			displayName: "Calculate Match Score",
			description: "Scores one partner against a requester and explains the result",
			schema:      cms.GetInputSchema(),
			errorCodes:  []apperrors.ErrorCode{apperrors.ErrCodeInvalidInput},
			tags:        []string{"scoring"},
		},
		{
			taskType:    rpm.TaskType,
			displayName: "Rank Partner Matches",
			description: "Ranks the public partner pool for a requester and optionally stores the suggestions",
			schema:      rpm.GetInputSchema(),
			errorCodes: []apperrors.ErrorCode{
				apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidTopN, apperrors.ErrCodeProfileMissing,
				apperrors.ErrCodeCandidatePoolFailed, apperrors.ErrCodeSearchQueryFailed,
				apperrors.ErrCodeSearchTimeout, apperrors.ErrCodeMatchPersistFailed,
			},
			tags: []string{"ranking", "cache"},
		},
		{
			taskType:    rmd.TaskType,
			displayName: "Record Match Decision",
			description: "Accepts, rejects or updates a business match on behalf of either side",
			schema:      rmd.GetInputSchema(),
			errorCodes: []apperrors.ErrorCode{
				apperrors.ErrCodeInvalidInput, apperrors.ErrCodeMatchNotFound,
				apperrors.ErrCodeInvalidMatchTransition, apperrors.ErrCodeMatchPersistFailed,
			},
			tags: []string{"persistence"},
		},
		{
			taskType:    nmp.TaskType,
			displayName: "Notify Match Partner",
			description: "Emails the partner of a match and optionally sends an SMS",
			schema:      nmp.GetInputSchema(),
			errorCodes:  []apperrors.ErrorCode{apperrors.ErrCodeInvalidInput, apperrors.ErrCodeNotificationSendFailed},
			tags:        []string{"notification"},
		},
	}
}

// buildRegistry describes every matching worker. Timeouts, retries and the
// enabled flag come from cfg.
func buildRegistry(cfg *config.Config, now time.Time) *registry.ActivityRegistry {
	reg := &registry.ActivityRegistry{
		Version:     registryVersion,
		LastUpdated: now.UTC().Format(time.RFC3339),
	}
	for _, def := range matchingActivities() {
		wcfg := config.GetWorkerConfig(cfg, def.taskType)
		codes := make([]string, len(def.errorCodes))
		for i, c := range def.errorCodes {
			codes[i] = string(c)
		}
		reg.Activities = append(reg.Activities, registry.Activity{
			ID:          def.taskType,
			DisplayName: def.displayName,
			Description: def.description,
			Category:    "matching",
			Version:     registryVersion,
			TaskType:    def.taskType,
			Enabled:     wcfg.Enabled,
			InputSchema: map[string]interface{}(def.schema),
			ErrorCodes:  codes,
			Timeout:     config.GetDuration(wcfg.Timeout).String(),
			Retries:     wcfg.MaxRetries,
			Tags:        def.tags,
		})
	}
	return reg
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Export or validate the activity registry of the matching workers",
	}

	var configPath, outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the activity registry as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			if configPath != "" {
				var err error
				if cfg, err = config.LoadFromFile(configPath); err != nil {
					return err
				}
			}
			reg := buildRegistry(cfg, time.Now())
			if outPath == "" {
				return writeJSON(cmd.OutOrStdout(), reg)
			}
			if err := reg.Save(outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", len(reg.Activities), outPath)
			return nil
		},
	}
	export.Flags().StringVar(&configPath, "config", "", "service config file for timeouts and retries")
	export.Flags().StringVarP(&outPath, "output", "o", "", "file to write (default stdout)")

	var path string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a registry file and that it covers every matching worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			for _, def := range matchingActivities() {
				if _, ok := reg.Find(def.taskType); !ok {
					return fmt.Errorf("registry has no activity for task type %s", def.taskType)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
	validate.Flags().StringVar(&path, "path", "configs/activity-registry.json", "path to the registry file")

	cmd.AddCommand(export, validate)
	return cmd
}
