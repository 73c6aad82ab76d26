package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

const invoiceText = "电子发票(普通发票) 发票号码:24312000000123456789 开票日期:2024年03月05日 " +
	"销售方名称:上海汽车旅行社 价税合计(大写)贰佰捌拾叁圆捌角壹分 (小写)¥283.81"

const tripText = "滴滴出行 行程单 合计 283.81 元"

type fakeTexts map[string]string

func (f fakeTexts) FirstPageText(path string) string { return f[path] }

type fakeInvoices map[string]*model.Record

func (f fakeInvoices) Read(path, scope string) (*model.Record, error) {
	rec, ok := f[path]
	if !ok {
		return nil, errors.New("parse failure")
	}
	c := *rec
	c.SourcePath = path
	c.Scope = scope
	c.Kind = model.SourceXML
	return &c, nil
}

type mergeCall struct {
	principal, auxiliary, dest string
}

type fakeMerger struct {
	calls []mergeCall
	fail  bool
}

func (m *fakeMerger) Merge(principal, auxiliary, dest string) error {
	if m.fail {
		return errors.New("merge exploded")
	}
	m.calls = append(m.calls, mergeCall{principal, auxiliary, dest})
	return nil
}

func newEngine(texts fakeTexts, invoices fakeInvoices, merger *fakeMerger) *Engine {
	return New(texts, invoices, merger, Config{OutputDir: "/out"})
}

func src(path, scope string) model.SourceFile {
	return model.SourceFile{Path: path, Scope: scope}
}

func TestProcessMergesMatchingTrip(t *testing.T) {
	texts := fakeTexts{
		"/in/发票.pdf":        invoiceText,
		"/in/滴滴出行行程报销单.pdf": tripText,
	}
	merger := &fakeMerger{}
	e := newEngine(texts, fakeInvoices{}, merger)

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/发票.pdf", "scope_0"),
		src("/in/滴滴出行行程报销单.pdf", "scope_0"),
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "24312000000123456789", row.Number)
	assert.Equal(t, "2024-03-05", row.Date)
	assert.Equal(t, "上海汽车旅行社", row.Seller)
	assert.InDelta(t, 283.81, row.Amount, 0.001)
	assert.Contains(t, row.Note, model.NoteMerged)
	assert.Equal(t, "24312000000123456789_283.81.pdf", row.Filename)

	assert.Equal(t, 1, res.MergedCount)
	require.Len(t, merger.calls, 1)
	assert.Equal(t, "/in/发票.pdf", merger.calls[0].principal)
	assert.Equal(t, "/in/滴滴出行行程报销单.pdf", merger.calls[0].auxiliary)
	assert.Empty(t, res.Missing)
}

func TestProcessMergeFailureKeepsOriginal(t *testing.T) {
	texts := fakeTexts{
		"/in/发票.pdf":  invoiceText,
		"/in/行程单.pdf": tripText,
	}
	e := newEngine(texts, fakeInvoices{}, &fakeMerger{fail: true})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/发票.pdf", "scope_0"),
		src("/in/行程单.pdf", "scope_0"),
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Contains(t, res.Rows[0].Note, model.NoteMergeFailed)
	assert.Equal(t, "发票.pdf", res.Rows[0].Filename)
	assert.Zero(t, res.MergedCount)
}

func TestProcessScopeIsolation(t *testing.T) {
	texts := fakeTexts{
		"/in/发票.pdf":  invoiceText,
		"/in/行程单.pdf": tripText,
	}
	merger := &fakeMerger{}
	e := newEngine(texts, fakeInvoices{}, merger)

	// Trip receipt lives in a different upload batch, so it must not merge.
	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/发票.pdf", "scope_0"),
		src("/in/行程单.pdf", "scope_1"),
	})
	require.NoError(t, err)

	assert.Empty(t, merger.calls)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, NoteTripStandalone, res.Rows[1].Note)
	assert.InDelta(t, 283.81, res.Rows[1].Amount, 0.001)
}

func TestProcessImageOnlyAlwaysMissing(t *testing.T) {
	texts := fakeTexts{"/in/扫描件.pdf": "  "}
	e := newEngine(texts, fakeInvoices{}, &fakeMerger{})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/扫描件.pdf", "scope_0"),
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, model.NoteImageOnly, res.Rows[0].Note)
	assert.Equal(t, []string{"扫描件.pdf"}, res.Missing)
}

func TestProcessXMLWithCompanionPDF(t *testing.T) {
	texts := fakeTexts{"/in/inv1.pdf": invoiceText}
	invoices := fakeInvoices{
		"/in/inv1.xml": {
			Number: "24312000000123456789",
			Date:   "2024-03-05",
			Seller: "上海汽车旅行社",
			Amount: 283.81,
			Note:   model.NoteNormal,
		},
	}
	e := newEngine(texts, invoices, &fakeMerger{})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/inv1.pdf", "scope_0"),
		src("/in/inv1.xml", "scope_0"),
	})
	require.NoError(t, err)

	// The structured record wins; the companion PDF adds no duplicate row
	// but stays part of the output set since nothing merged it.
	require.Len(t, res.Rows, 1)
	assert.Equal(t, model.SourceXML, res.Rows[0].Source)
	assert.Equal(t, model.NoteNormal, res.Rows[0].Note)
	assert.Equal(t, []string{"/in/inv1.pdf"}, res.Companions)
	assert.Empty(t, res.Missing)
}

func TestProcessXMLWithoutCompanion(t *testing.T) {
	invoices := fakeInvoices{
		"/in/lonely.xml": {Number: "12345678", Amount: 50.00, Note: model.NoteNormal},
	}
	e := newEngine(fakeTexts{}, invoices, &fakeMerger{})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/lonely.xml", "scope_0"),
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, model.NoteXMLOnly, res.Rows[0].Note)
}

func TestProcessUnreadableXMLReportedMissing(t *testing.T) {
	e := newEngine(fakeTexts{"/in/a.pdf": invoiceText}, fakeInvoices{}, &fakeMerger{})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/a.pdf", "scope_0"),
		src("/in/broken.xml", "scope_0"),
	})
	require.NoError(t, err)

	// The corrupt file yields no row but must surface for manual review.
	require.Len(t, res.Rows, 1)
	assert.Equal(t, model.SourcePDF, res.Rows[0].Source)
	assert.Contains(t, res.Missing, "broken.xml")
}

func TestProcessNoDocuments(t *testing.T) {
	e := newEngine(fakeTexts{}, fakeInvoices{}, &fakeMerger{})

	_, err := e.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = e.Process(context.Background(), []model.SourceFile{src("/in/notes.txt", "s")})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestProcessCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(fakeTexts{"/in/a.pdf": invoiceText}, fakeInvoices{}, &fakeMerger{})
	_, err := e.Process(ctx, []model.SourceFile{src("/in/a.pdf", "s")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBackfillsAmountFromTrip(t *testing.T) {
	texts := fakeTexts{
		"/in/inv1.pdf": invoiceText,
		"/in/行程单.pdf":  "滴滴出行 行程单 合计 120.50 元",
	}
	invoices := fakeInvoices{
		"/in/inv1.xml": {Number: "11118888", Note: model.NoteNormal},
	}
	merger := &fakeMerger{}
	e := newEngine(texts, invoices, merger)

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/inv1.pdf", "scope_0"),
		src("/in/inv1.xml", "scope_0"),
		src("/in/行程单.pdf", "scope_0"),
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 120.50, res.Rows[0].Amount, 0.001)
	assert.Equal(t, "11118888_120.5.pdf", res.Rows[0].Filename)
	assert.InDelta(t, 120.50, res.TotalAmount, 0.001)
	assert.Empty(t, res.Companions, "merged companion needs no separate copy")
}

func TestProcessNoBackfillOnMergeFailure(t *testing.T) {
	texts := fakeTexts{
		"/in/inv1.pdf": invoiceText,
		"/in/行程单.pdf":  "滴滴出行 行程单 合计 120.50 元",
	}
	invoices := fakeInvoices{
		"/in/inv1.xml": {Number: "11118888", Note: model.NoteNormal},
	}
	e := newEngine(texts, invoices, &fakeMerger{fail: true})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/inv1.pdf", "scope_0"),
		src("/in/inv1.xml", "scope_0"),
		src("/in/行程单.pdf", "scope_0"),
	})
	require.NoError(t, err)

	// Without a merged file the receipt's amount stays unverified.
	require.Len(t, res.Rows, 1)
	assert.Zero(t, res.Rows[0].Amount)
	assert.Contains(t, res.Rows[0].Note, model.NoteMergeFailed)
	assert.Equal(t, "inv1.xml", res.Rows[0].Filename)
	assert.Equal(t, []string{"/in/inv1.pdf"}, res.Companions)
}

func TestProcessTotalAmount(t *testing.T) {
	invoices := fakeInvoices{
		"/in/a.xml": {Number: "11112222", Amount: 100.50, Note: model.NoteNormal},
		"/in/b.xml": {Number: "33334444", Amount: 200.25, Note: model.NoteNormal},
	}
	e := newEngine(fakeTexts{}, invoices, &fakeMerger{})

	res, err := e.Process(context.Background(), []model.SourceFile{
		src("/in/a.xml", "scope_0"),
		src("/in/b.xml", "scope_0"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 300.75, res.TotalAmount, 0.001)
}
