package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/ats"
	"github.com/jonathan/resume-live/internal/extraction"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/observability"
	"github.com/jonathan/resume-live/internal/server"
	"github.com/jonathan/resume-live/internal/storage"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Score a resume file with the ATS scorer",
	Long: `Extracts the text of a PDF, JPEG or PNG resume and prints its ATS report.
Images need llm.api_key for transcription.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Also write the report as JSON to this path")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	mimeType, err := storage.ValidateUpload(filepath.Base(path), data)
	if err != nil {
		return err
	}

	vision, err := server.OpenVision(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if vision != nil {
		defer func() {
			if err := vision.Close(); err != nil {
				log.Warn("failed to close llm client", zap.Error(err))
			}
		}()
	}

	extractor := extraction.NewExtractor(nil, "", vision, log)
	raw, err := extractor.ExtractBytes(cmd.Context(), mimeType, data)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}
	report := ats.Analyze(ingestion.CleanText(raw))

	observability.NewPrinter(cmd.OutOrStdout()).PrintATSReport(filepath.Base(path), &report)

	if analyzeOutput == "" {
		return nil
	}
	if dir := filepath.Dir(analyzeOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(analyzeOutput, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
