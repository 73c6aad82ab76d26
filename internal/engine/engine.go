// Package engine orchestrates the reconciliation pipeline: document
// classification, field extraction, trip-receipt matching, merging, and the
// final verification sweep.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/fapiaowuyou/fapiao-recon/internal/classify"
	"github.com/fapiaowuyou/fapiao-recon/internal/cntext"
	"github.com/fapiaowuyou/fapiao-recon/internal/extract"
	"github.com/fapiaowuyou/fapiao-recon/internal/match"
	"github.com/fapiaowuyou/fapiao-recon/internal/merge"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
	"github.com/fapiaowuyou/fapiao-recon/internal/verify"
)

// ErrNoDocuments is returned when the inputs contain no PDF or XML documents.
// It is the pipeline's only fatal input condition; individual unreadable
// documents degrade to warning rows instead.
var ErrNoDocuments = errors.New("no invoice documents found in inputs")

// NoteTripStandalone marks a trip receipt that no invoice claimed.
const NoteTripStandalone = "独立行程单(未匹配发票)"

// Config holds the engine options.
type Config struct {
	// OutputDir receives merged PDFs. It must exist.
	OutputDir string
	// ShowProgress renders a terminal progress bar during PDF parsing.
	ShowProgress bool
}

// Engine runs the reconciliation pipeline over a staged document set.
type Engine struct {
	texts    TextReader
	invoices InvoiceReader
	merger   Merger
	cfg      Config
}

// New creates an engine with the given collaborators.
func New(texts TextReader, invoices InvoiceReader, merger Merger, cfg Config) *Engine {
	return &Engine{texts: texts, invoices: invoices, merger: merger, cfg: cfg}
}

// Result is the outcome of one pipeline run. Companions lists invoice PDFs
// that were claimed by a structured record but not merged; they belong in the
// output set even though no row carries their filename.
type Result struct {
	Rows        []model.ResultRow
	Missing     []string
	Companions  []string
	MergedCount int
	TotalAmount float64
}

// pdfDoc is an invoice PDF with its extracted text, tracked so an XML record
// can claim it as merge principal.
type pdfDoc struct {
	src     model.SourceFile
	text    string
	claimed bool
}

// Process runs the full pipeline: classify PDFs into invoices and trip
// receipts, extract records from XMLs and invoice PDFs, match and merge trip
// receipts, then sweep every record against the final table.
func (e *Engine) Process(ctx context.Context, sources []model.SourceFile) (*Result, error) {
	var pdfs, xmls []model.SourceFile
	for _, s := range sources {
		switch strings.ToLower(filepath.Ext(s.Path)) {
		case ".pdf":
			pdfs = append(pdfs, s)
		case ".xml":
			xmls = append(xmls, s)
		}
	}
	if len(pdfs) == 0 && len(xmls) == 0 {
		return nil, ErrNoDocuments
	}

	pool := match.NewPool()
	docs, err := e.classifyPDFs(ctx, pdfs, pool)
	if err != nil {
		return nil, err
	}

	var records []*model.Record
	var unreadable []string
	principals := map[*model.Record]string{} // record -> merge principal PDF

	for _, s := range xmls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, readErr := e.invoices.Read(s.Path, s.Scope)
		if readErr != nil {
			slog.Warn("unreadable invoice data file, flagging for manual review",
				"file", filepath.Base(s.Path), "error", readErr)
			unreadable = append(unreadable, filepath.Base(s.Path))
			continue
		}
		if doc := claimCompanion(docs, rec); doc != nil {
			principals[rec] = doc.src.Path
		} else {
			rec.Note = model.NoteXMLOnly
		}
		records = append(records, rec)
	}

	for _, doc := range docs {
		if doc.claimed {
			continue
		}
		rec := extract.FromPDFText(doc.text, doc.src.Path, doc.src.Scope)
		if !rec.ImageOnly() {
			principals[&rec] = doc.src.Path
		}
		records = append(records, &rec)
	}

	res := &Result{}
	for _, rec := range records {
		row := model.ResultRow{
			Seq:      len(res.Rows) + 1,
			Number:   rec.Number,
			Date:     rec.Date,
			Seller:   rec.Seller,
			Amount:   rec.Amount,
			Source:   rec.Kind,
			Note:     rec.Note,
			Filename: filepath.Base(rec.SourcePath),
		}
		if principal, ok := principals[rec]; ok {
			merged := e.mergeTrip(pool, rec, principal, &row, res)
			// A companion PDF claimed by a structured record has no row of
			// its own; if it was not merged either, the caller must still
			// keep the file with the output set.
			if !merged && rec.Kind == model.SourceXML {
				res.Companions = append(res.Companions, principal)
			}
		}
		res.TotalAmount += row.Amount
		res.Rows = append(res.Rows, row)
	}

	for _, entry := range pool.Entries() {
		if entry.Used {
			continue
		}
		res.Rows = append(res.Rows, model.ResultRow{
			Seq:      len(res.Rows) + 1,
			Amount:   entry.Amount,
			Source:   model.SourcePDF,
			Note:     NoteTripStandalone,
			Filename: filepath.Base(entry.Path),
		})
		res.TotalAmount += entry.Amount
	}

	res.Missing = append(sweep(res.Rows, records), unreadable...)
	return res, nil
}

// classifyPDFs reads every PDF once, routes trip receipts into the pool, and
// returns the invoice documents.
func (e *Engine) classifyPDFs(ctx context.Context, pdfs []model.SourceFile, pool *match.Pool) ([]*pdfDoc, error) {
	var bar *progressbar.ProgressBar
	if e.cfg.ShowProgress && len(pdfs) > 0 {
		bar = progressbar.NewOptions(len(pdfs),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("解析 PDF 文档"),
		)
	}

	var docs []*pdfDoc
	for _, s := range pdfs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := e.texts.FirstPageText(s.Path)
		if bar != nil {
			_ = bar.Add(1)
		}
		if classify.IsTripReceipt(filepath.Base(s.Path), text) {
			amount, _ := extract.Amount(cntext.Normalize(text))
			pool.Add(s.Path, amount, s.Scope)
			continue
		}
		docs = append(docs, &pdfDoc{src: s, text: text})
	}
	return docs, nil
}

// claimCompanion finds the invoice PDF belonging to an XML record: same file
// stem in the same scope, or a page mentioning the invoice number. The PDF is
// claimed so it does not produce a duplicate row.
func claimCompanion(docs []*pdfDoc, rec *model.Record) *pdfDoc {
	stem := fileStem(rec.SourcePath)
	for _, doc := range docs {
		if doc.claimed || doc.src.Scope != rec.Scope {
			continue
		}
		if fileStem(doc.src.Path) == stem ||
			(rec.Number != "" && strings.Contains(doc.text, rec.Number)) {
			doc.claimed = true
			return doc
		}
	}
	return nil
}

// mergeTrip matches the record against the auxiliary pool and, on a hit,
// merges the pair into the output directory, reporting whether a merged file
// was produced. Merge failure keeps the original file and flags the row; the
// receipt stays consumed either way.
func (e *Engine) mergeTrip(pool *match.Pool, rec *model.Record, principal string, row *model.ResultRow, res *Result) bool {
	m := pool.Match(rec.Amount, filepath.Base(principal), rec.Scope)
	if m.Entry == nil {
		return false
	}

	// The merged document includes the receipt, so its name carries the
	// receipt's amount when the invoice itself had none.
	amount := rec.Amount
	if amount == 0 && m.Entry.Amount > 0 {
		amount = m.Entry.Amount
	}

	dest := filepath.Join(e.cfg.OutputDir, merge.SafeName(rec.Number, amount))
	if err := e.merger.Merge(principal, m.Entry.Path, dest); err != nil {
		slog.Warn("merge failed, keeping original",
			"invoice", filepath.Base(principal),
			"trip", filepath.Base(m.Entry.Path),
			"error", err)
		row.Note = composeNote(row.Note, model.NoteMergeFailed)
		return false
	}

	// Backfill only once the merged file exists; a failed merge must not
	// report an amount the row never verified.
	if row.Amount == 0 && m.Entry.Amount > 0 {
		row.Amount = m.Entry.Amount
		rec.Amount = m.Entry.Amount
	}
	row.Note = composeNote(row.Note, fmt.Sprintf("%s(%s)", model.NoteMerged, m.Remark))
	row.Filename = filepath.Base(dest)
	res.MergedCount++
	return true
}

// sweep re-checks every extracted record against the finished table. A record
// that cannot be found, image-only scans included, lands in the missing list
// for manual review.
func sweep(rows []model.ResultRow, records []*model.Record) []string {
	ix := verify.Build(rows)
	var missing []string
	for _, rec := range records {
		if rec.ImageOnly() || !ix.Check(verify.CandidateFromRecord(rec)) {
			missing = append(missing, filepath.Base(rec.SourcePath))
		}
	}
	return missing
}

func composeNote(base, extra string) string {
	if base == "" {
		return extra
	}
	return base + "; " + extra
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureOutputDir creates the merged-output directory if needed.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
