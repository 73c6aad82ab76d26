package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/fapiaowuyou/fapiao-recon/internal/cntext"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// minReadableRunes is the threshold below which a page is treated as a
// scanned image rather than extractable text.
const minReadableRunes = 10

// FromPDFText builds a Record from the raw first-page text of a PDF. Text
// shorter than minReadableRunes short-circuits with the image-only note;
// nothing trustworthy can be extracted from a scan.
func FromPDFText(raw, path, scope string) model.Record {
	rec := model.Record{SourcePath: path, Scope: scope, Kind: model.SourcePDF}

	if utf8.RuneCountInString(strings.TrimSpace(raw)) < minReadableRunes {
		rec.Note = model.NoteImageOnly
		return rec
	}

	text := cntext.Normalize(raw)
	rec.Number = Number(text)
	rec.Date = cntext.FormatDate(text)
	rec.Amount, rec.Note = Amount(text)
	rec.Seller = SellerName(text)

	// An amount without a number is usable but worth flagging, unless the
	// note already carries a warning.
	if rec.Number == "" && rec.Amount > 0 && !strings.Contains(rec.Note, "警告") {
		rec.Note = "无发票号-" + rec.Note
	}
	return rec
}
