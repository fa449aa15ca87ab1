package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"github.com/spf13/cobra"
)

type scoreOutput struct {
	Reading   models.ModuleResult         `json:"reading"`
	Listening models.ModuleResult         `json:"listening"`
	Scores    models.SessionScores        `json:"scores"`
	State     models.GradingState         `json:"state"`
	Warnings  []validator.Warning         `json:"warnings"`
	Defects   []validator.AuthoringDefect `json:"defects"`
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a set of answers against a test definition offline",
		Long: "Reads a test definition and a candidate's answers from JSON files and prints\n" +
			"the reading and listening results with the partial overall band.",
		RunE: runScore,
	}
	f := cmd.Flags()
	f.String("test", "", "Path to the test definition JSON")
	f.String("answers", "", "Path to the answers JSON ({reading, listening, writing})")
	f.Bool("breakdown", false, "Include the per-question breakdown")
	_ = cmd.MarkFlagRequired("test")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	logger, err := setupLogging(cmd)
	if err != nil {
		return err
	}

	testPath, _ := cmd.Flags().GetString("test")
	answersPath, _ := cmd.Flags().GetString("answers")
	breakdown, _ := cmd.Flags().GetBool("breakdown")

	var def models.TestDefinition
	if err := readJSON(testPath, &def); err != nil {
		return err
	}
	var answers models.SessionAnswers
	if err := readJSON(answersPath, &answers); err != nil {
		return err
	}

	out := scoreOutput{
		Warnings: []validator.Warning{},
		Defects:  []validator.AuthoringDefect{},
	}
	for _, module := range []models.Module{models.ModuleReading, models.ModuleListening} {
		schema, defects := validator.Extract(&def, module)
		out.Defects = append(out.Defects, defects...)

		moduleAnswers := answers.Reading
		if module == models.ModuleListening {
			moduleAnswers = answers.Listening
		}
		for _, w := range validator.ValidateAnswers(moduleAnswers, schema).Warnings {
			w.Field = string(module) + "." + w.Field
			out.Warnings = append(out.Warnings, w)
		}
	}

	result := scoring.Score(&answers, &def)
	for _, r := range []models.ModuleResult{result.Reading, result.Listening} {
		if r.RawTotal != scoring.ReferenceQuestionCount {
			logger.Warn("Module question count differs from the band table reference",
				"module", r.Module, "raw_total", r.RawTotal)
		}
	}

	scores, err := scoring.ApplyResult(models.SessionScores{}, result.Reading)
	if err != nil {
		return err
	}
	if scores, err = scoring.ApplyResult(scores, result.Listening); err != nil {
		return err
	}

	if !breakdown {
		result.Reading.Questions = nil
		result.Listening.Questions = nil
	}
	out.Reading, out.Listening = result.Reading, result.Listening
	out.Scores = scores
	out.State = scoring.State(scores)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
