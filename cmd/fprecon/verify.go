package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fapiaowuyou/fapiao-recon/internal/archive"
	"github.com/fapiaowuyou/fapiao-recon/internal/cli"
	"github.com/fapiaowuyou/fapiao-recon/internal/common"
	"github.com/fapiaowuyou/fapiao-recon/internal/extract"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
	"github.com/fapiaowuyou/fapiao-recon/internal/reader"
	"github.com/fapiaowuyou/fapiao-recon/internal/report"
	"github.com/fapiaowuyou/fapiao-recon/internal/storage"
	"github.com/fapiaowuyou/fapiao-recon/internal/verify"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <zip|dir|file>...",
		Short: "Check documents against a finished reconciliation",
		Long: `Re-extract each given document and look it up in the result set of a
previous process run, taken either from the run history (--run) or from a
workbook file (--report). Reports which documents are accounted for and
which need manual review.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().String("run", "", "run ID from the history database to verify against")
	cmd.Flags().String("report", "", "workbook written by process to verify against")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	rows, err := loadResultRows(cmd)
	if err != nil {
		return err
	}
	ix := verify.Build(rows)

	workDir, err := os.MkdirTemp("", "fprecon-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	sources, err := archive.CollectSources(args, workDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return common.ErrMissingInput
	}

	texts := reader.NewPDFText()
	invoices := reader.NewInvoiceXML()

	var found, missing []string
	for _, s := range sources {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		rec := extractRecord(texts, invoices, s)
		name := filepath.Base(s.Path)
		if rec != nil && !rec.ImageOnly() && ix.Check(verify.CandidateFromRecord(rec)) {
			found = append(found, name)
		} else {
			missing = append(missing, name)
		}
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("核验完成: %d/%d 份已入账", len(found), len(sources))))
	for _, name := range found {
		fmt.Println(cli.FormatSuccess(name))
	}
	if len(missing) > 0 {
		fmt.Println(cli.FormatWarning("以下文件未在汇总表中找到:"))
		for _, name := range missing {
			fmt.Println(cli.ErrorStyle.Render("  " + name))
		}
	}
	return nil
}

// loadResultRows resolves the reference result set from exactly one of the
// --run and --report flags.
func loadResultRows(cmd *cobra.Command) ([]model.ResultRow, error) {
	runID, _ := cmd.Flags().GetString("run")
	reportPath, _ := cmd.Flags().GetString("report")

	switch {
	case runID != "" && reportPath != "":
		return nil, fmt.Errorf("%w: --run and --report are mutually exclusive", common.ErrInvalidConfig)
	case runID != "":
		dbPath, err := defaultDBPath()
		if err != nil {
			return nil, err
		}
		store, err := storage.NewSQLiteStorage(dbPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(cmd.Context()); err != nil {
			return nil, err
		}
		rows, err := store.GetRows(cmd.Context(), runID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s", common.ErrRunNotFound, runID)
		}
		return rows, nil
	case reportPath != "":
		return report.ReadXLSX(reportPath)
	default:
		return nil, fmt.Errorf("%w: one of --run or --report is required", common.ErrInvalidConfig)
	}
}

func extractRecord(texts *reader.PDFText, invoices *reader.InvoiceXML, s model.SourceFile) *model.Record {
	if strings.EqualFold(filepath.Ext(s.Path), ".xml") {
		rec, err := invoices.Read(s.Path, s.Scope)
		if err != nil {
			return nil
		}
		return rec
	}
	rec := extract.FromPDFText(texts.FirstPageText(s.Path), s.Path, s.Scope)
	return &rec
}
