package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fapiaowuyou/fapiao-recon/internal/archive"
	"github.com/fapiaowuyou/fapiao-recon/internal/cli"
	"github.com/fapiaowuyou/fapiao-recon/internal/common"
	"github.com/fapiaowuyou/fapiao-recon/internal/engine"
	"github.com/fapiaowuyou/fapiao-recon/internal/merge"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
	"github.com/fapiaowuyou/fapiao-recon/internal/reader"
	"github.com/fapiaowuyou/fapiao-recon/internal/report"
	"github.com/fapiaowuyou/fapiao-recon/internal/storage"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <zip|dir|file>...",
		Short: "Extract, match and reconcile a batch of invoices",
		Long: `Process one or more input batches. Each argument (a ZIP archive, a
directory, or a loose PDF/XML) forms its own matching scope: trip receipts
only ever pair with invoices from the same batch.

The command writes merged PDFs and the reconciliation workbook into the
output directory and records the run in the local history database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().StringP("out", "o", "fapiao_out", "output directory for merged PDFs and the workbook")
	cmd.Flags().String("report", "发票汇总.xlsx", "workbook filename inside the output directory")
	cmd.Flags().Bool("no-progress", false, "disable the terminal progress bar")
	cmd.Flags().Bool("no-history", false, "skip recording the run in the history database")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	reportName, _ := cmd.Flags().GetString("report")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	workDir, err := os.MkdirTemp("", "fprecon-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	sources, err := archive.CollectSources(args, workDir)
	if err != nil {
		return common.NewUserError("failed to collect input documents", err)
	}
	if err := engine.EnsureOutputDir(outDir); err != nil {
		return err
	}

	started := time.Now()
	eng := engine.New(
		reader.NewPDFText(),
		reader.NewInvoiceXML(),
		merge.NewPDFMerger(),
		engine.Config{OutputDir: outDir, ShowProgress: !noProgress},
	)
	res, err := eng.Process(cmd.Context(), sources)
	if err != nil {
		return err
	}

	copyOriginals(sources, res, outDir)

	reportPath := filepath.Join(outDir, reportName)
	if err := report.WriteXLSX(res.Rows, reportPath); err != nil {
		return err
	}

	if !noHistory {
		if err := saveRun(cmd, args, res, started, reportPath); err != nil {
			// History is a convenience, the workbook is the deliverable.
			slog.Warn("failed to record run history", "error", err)
		}
	}

	printSummary(res, reportPath)
	return nil
}

func saveRun(cmd *cobra.Command, inputs []string, res *engine.Result, started time.Time, reportPath string) error {
	dbPath, err := defaultDBPath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	return store.SaveRun(cmd.Context(), storage.Run{
		ID:          uuid.NewString(),
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Inputs:      inputs,
		RowCount:    len(res.Rows),
		TotalAmount: res.TotalAmount,
		ReportPath:  reportPath,
	}, res.Rows, res.Missing)
}

// copyOriginals brings the unmerged documents referenced by the workbook into
// the output directory, so it holds the complete submission set. Merged PDFs
// are already there; staging-directory paths disappear with the temp dir.
// Companion PDFs claimed by an XML row but left unmerged appear in no row and
// are copied from the engine's companion list.
func copyOriginals(sources []model.SourceFile, res *engine.Result, outDir string) {
	byBase := make(map[string]string, len(sources))
	for _, s := range sources {
		byBase[filepath.Base(s.Path)] = s.Path
	}
	for _, row := range res.Rows {
		src, ok := byBase[row.Filename]
		if !ok {
			continue // merged output, already in place
		}
		if err := copyFile(src, filepath.Join(outDir, row.Filename)); err != nil {
			slog.Warn("failed to copy original into output", "file", row.Filename, "error", err)
		}
	}
	for _, src := range res.Companions {
		name := filepath.Base(src)
		if err := copyFile(src, filepath.Join(outDir, name)); err != nil {
			slog.Warn("failed to copy companion into output", "file", name, "error", err)
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

func printSummary(res *engine.Result, reportPath string) {
	lines := []string{
		fmt.Sprintf("发票数量: %d", len(res.Rows)),
		fmt.Sprintf("合并行程单: %d", res.MergedCount),
		fmt.Sprintf("价税合计: %.2f 元", res.TotalAmount),
		fmt.Sprintf("汇总表: %s", reportPath),
	}
	fmt.Println(cli.RenderBox("处理完成", strings.Join(lines, "\n")))

	if len(res.Missing) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d 份文件未能核验, 请人工复查:", len(res.Missing))))
		for _, name := range res.Missing {
			fmt.Println(cli.SubtleStyle.Render("  " + name))
		}
	}
}
