// cmd/matchctl/root.go
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/matching/ranking"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/models"
)

const app = "matchctl"

// rankInput is read from --input. JSON input uses the camelCase field names
// of the worker variables, YAML input uses snake_case keys.
type rankInput struct {
	Requester  models.RequesterProfile   `json:"requester" yaml:"requester"`
	Candidates []models.CandidateProfile `json:"candidates" yaml:"candidates"`
}

type rankOutput struct {
	RequesterID     string               `json:"requesterId,omitempty"`
	TotalCandidates int                  `json:"totalCandidates"`
	Matches         []models.MatchResult `json:"matches"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          app,
		Short:        "matchctl ranks partner candidates for a requester offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.AddCommand(newRankCmd(), newRegistryCmd())
	return root
}

func newRankCmd() *cobra.Command {
	var (
		inputPath  string
		tablesPath string
		top        int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Score and rank the candidates of an input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			level := "warn"
			if debug {
				level = "debug"
			}
			log := logger.NewZapAdapter(logger.New(level, "console", "stderr"))

			in, err := readInput(inputPath)
			if err != nil {
				return err
			}

			tables := scoring.DefaultTables()
			if tablesPath != "" {
				if tables, err = scoring.LoadTables(tablesPath); err != nil {
					return err
				}
			}
			engine, err := scoring.NewEngine(scoring.DefaultWeights(), tables)
			if err != nil {
				return err
			}

			matches, err := ranking.NewRanker(engine, ranking.Config{}, log).
				Rank(cmd.Context(), in.Requester, in.Candidates, top)
			if err != nil {
				return fmt.Errorf("rank: %w", err)
			}

			if matches == nil {
				matches = []models.MatchResult{}
			}
			return writeJSON(cmd.OutOrStdout(), rankOutput{
				RequesterID:     in.Requester.ID,
				TotalCandidates: len(in.Candidates),
				Matches:         matches,
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "file with the requester and the candidates (- for stdin)")
	cmd.Flags().StringVar(&tablesPath, "tables", "", "YAML file overriding the sector and country tables")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of matches to return")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readInput(path string) (*rankInput, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	return decodeInput(data)
}

// decodeInput rejects unknown keys so a field spelled for the other format
// fails loudly instead of scoring as empty.
func decodeInput(data []byte) (*rankInput, error) {
	var in rankInput
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("parse JSON input: %w", err)
		}
		return &in, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse input: input is empty")
		}
		return nil, fmt.Errorf("parse YAML input: %w", err)
	}
	return &in, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
