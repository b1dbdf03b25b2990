package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/truonghoc/studio/internal/catalog"
	"github.com/truonghoc/studio/internal/document"
	appI18n "github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/quiz"
	"github.com/truonghoc/studio/internal/store"
)

func addExamFlags(f *pflag.FlagSet) {
	f.String("subject", "", "Subject, e.g. \"Toán\" (required)")
	f.String("grade", "", "Grade level, e.g. \"Lớp 5\" (required)")
	f.String("semester", "", "Semester, e.g. \"Cuối học kì I\" (required)")
	f.String("matrix", "", "Optional exam matrix file (image, PDF, Word)")
	f.String("spec", "", "Optional specification file (image, PDF, Word)")
	f.StringP("output", "o", "", "Output file (default: stdout)")
	f.StringP("lang", "l", "vi", "Message language (vi, en)")
	addBackendFlags(f)
}

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate an online quiz as JSON",
		RunE:  runQuiz,
	}
	addExamFlags(cmd.Flags())
	return cmd
}

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Generate a printable exam as a Word document",
		RunE:  runExam,
	}
	addExamFlags(cmd.Flags())
	return cmd
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Transcribe a scanned page or PDF into a Word document",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file (default: Converted_<name>.doc)")
	f.StringP("lang", "l", "vi", "Message language (vi, en)")
	addBackendFlags(f)
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Export the generation log as JSON",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	f.String("db", "studio.db", "SQLite database path")
	f.String("capability", "", "Only include this capability")
	f.String("status", "", "Only include this status (running, succeeded, failed)")
	f.Duration("since", 0, "Only include attempts started within this window (0 = all)")
	f.StringP("output", "o", "", "Output file (default: stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

// loadMedia reads path into a MediaFile, detecting its MIME type from content.
// An empty path yields nil.
func loadMedia(path string) (*model.MediaFile, error) {
	if path == "" {
		return nil, nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return model.MediaFileFromPath(path, mt.String()), nil
}

// examConfigFromFlags builds and checks the exam configuration.
func examConfigFromFlags(cmd *cobra.Command) (model.ExamConfig, error) {
	v := viperForCmd(cmd)
	cfg := model.ExamConfig{
		Subject:  model.Subject(v.GetString("subject")),
		Grade:    v.GetString("grade"),
		Semester: v.GetString("semester"),
	}
	if cfg.Subject != "" && !catalog.Default().HasSubject(cfg.Subject) {
		return cfg, fmt.Errorf("unknown subject %q", cfg.Subject)
	}
	var err error
	if cfg.MatrixFile, err = loadMedia(v.GetString("matrix")); err != nil {
		return cfg, err
	}
	if cfg.SpecFile, err = loadMedia(v.GetString("spec")); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// oneShotContext prepares logging, messages and a cancellable context for a
// single generation run.
func oneShotContext(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
	setupLogging(cmd)
	lang := viperForCmd(cmd).GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	return appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang)), cancel, nil
}

func runQuiz(cmd *cobra.Command, _ []string) error {
	ctx, cancel, err := oneShotContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	cfg, err := examConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	v := viperForCmd(cmd)
	b, err := buildBackends(ctx, v, nil)
	if err != nil {
		return err
	}

	res, err := b.service.OnlineQuiz(ctx, cfg)
	if err != nil {
		return err
	}
	if issues := quiz.Validate(res.Quiz, cfg.Subject); len(issues) > 0 {
		slog.Warn("quiz does not match blueprint", "issues", issues)
	}
	slog.Info(appI18n.Tp(ctx, "QuestionsGenerated", len(res.Quiz.Questions)))

	data, err := json.MarshalIndent(res.Quiz, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(v.GetString("output"), append(data, '\n'))
}

func runExam(cmd *cobra.Command, _ []string) error {
	ctx, cancel, err := oneShotContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	cfg, err := examConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	v := viperForCmd(cmd)
	b, err := buildBackends(ctx, v, nil)
	if err != nil {
		return err
	}

	res, err := b.service.ExamDocument(ctx, cfg)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(fmt.Sprintf("%s %s %s", cfg.Subject, cfg.Grade, cfg.Semester))
	out := v.GetString("output")
	if out == "" {
		out = document.ExamFileName(string(cfg.Subject), cfg.Grade)
	}
	if err := writeOutput(out, document.WrapWord(title, res.Text)); err != nil {
		return err
	}
	slog.Info("exam written", "path", out)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel, err := oneShotContext(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	src, err := loadMedia(args[0])
	if err != nil {
		return err
	}
	v := viperForCmd(cmd)
	b, err := buildBackends(ctx, v, nil)
	if err != nil {
		return err
	}

	res, err := b.service.ConvertDocument(ctx, src)
	if err != nil {
		return err
	}
	out := v.GetString("output")
	if out == "" {
		out = document.ConvertedFileName(filepath.Base(args[0]))
	}
	if err := writeOutput(out, document.WrapWord("", res.Text)); err != nil {
		return err
	}
	slog.Info("document converted", "source", args[0], "path", out)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	f := store.GenerationFilter{
		Capability: model.Capability(v.GetString("capability")),
		Status:     model.GenerationStatus(v.GetString("status")),
	}
	if d := v.GetDuration("since"); d > 0 {
		f.Since = time.Now().UTC().Add(-d)
	}
	export, err := db.ExportGenerations(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("export generations: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(v.GetString("output"), append(data, '\n'))
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
