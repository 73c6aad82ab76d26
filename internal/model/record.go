// Package model defines the core data types shared across the reconciliation pipeline.
package model

// SourceKind identifies the kind of document a record was extracted from.
type SourceKind string

// Known source kinds.
const (
	SourceXML SourceKind = "XML"
	SourcePDF SourceKind = "PDF"
)

// Status notes written into the 备注 column. Notes carrying extracted values
// (e.g. the amount discrepancy warning) are composed with fmt at the call site.
const (
	NoteNormal       = "正常"
	NoteNoDigitForm  = "正常 (无小写)"
	NoteDigitOnly    = "使用小写 (未读到大写)"
	NoteNoAmount     = "警告:未读到金额"
	NoteImageOnly    = "⚠️ 纯图/扫描件"
	NoteMerged       = "已合并行程单"
	NoteMergeFailed  = "合并失败-保留原件"
	NoteXMLOnly      = "仅XML(缺PDF)"
	NoteBlankContent = "空白内容"
	NoteFullScan     = "使用全文扫描 (未锚定)"
)

// SourceFile is one document handed to the engine, already assigned to the
// origin scope (upload batch) it arrived in.
type SourceFile struct {
	Path  string
	Scope string
}

// Record is the normalized extraction result for a single source document.
// Amount is never negative; a failed extraction leaves Amount at 0 with the
// failure surfaced in Note, never a silently-valid zero.
type Record struct {
	Number     string
	Date       string // YYYY-MM-DD, empty when not found
	Seller     string
	Amount     float64
	SourcePath string
	Scope      string
	Note       string
	Kind       SourceKind
}

// ImageOnly reports whether the record came from a document whose text could
// not be read (scanned image). Such records are always treated as missing by
// the verification sweep, whatever their extracted amount says.
func (r *Record) ImageOnly() bool {
	return r.Note == NoteImageOnly
}

// ResultRow is one line of the reconciliation report.
type ResultRow struct {
	Seq      int
	Number   string
	Date     string
	Seller   string
	Amount   float64
	Source   SourceKind
	Note     string
	Filename string
}
