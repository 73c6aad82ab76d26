package reader

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fapiaowuyou/fapiao-recon/internal/cntext"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// Tag-path variants for the known e-invoice XML dialects, in priority order.
// Each path matches a descendant element chain anywhere in the document.
var (
	numberPaths = [][]string{
		{"TaxSupervisionInfo", "InvoiceNumber"},
		{"InvoiceNumber"},
		{"Fphm"},
	}
	datePaths = [][]string{
		{"TaxSupervisionInfo", "IssueTime"},
		{"IssueTime"},
		{"Kprq"},
	}
	sellerPaths = [][]string{
		{"SellerInformation", "SellerName"},
		{"Xfmc"},
	}
	amountPaths = [][]string{
		{"BasicInformation", "TotalTax-includedAmount"},
		{"TotalTax-includedAmount"},
		{"TotalAmount"},
		{"Jshj"},
	}
)

// InvoiceXML reads structured e-invoice XML files.
type InvoiceXML struct{}

// NewInvoiceXML returns the production XML invoice reader.
func NewInvoiceXML() *InvoiceXML {
	return &InvoiceXML{}
}

// Read parses the invoice at path, resolving each field through its tag-path
// variants. A missing tag yields an empty field; a file that is not valid XML
// yields an error, which callers treat as an unreadable source.
func (*InvoiceXML) Read(path, scope string) (*model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read invoice xml: %w", err)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse invoice xml: %w", err)
	}

	rec := &model.Record{
		Number:     root.first(numberPaths),
		Date:       cntext.FormatDate(root.first(datePaths)),
		Seller:     root.first(sellerPaths),
		SourcePath: path,
		Scope:      scope,
		Note:       model.NoteNormal,
		Kind:       model.SourceXML,
	}
	if raw := root.first(amountPaths); raw != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "")); err == nil {
			rec.Amount = d.InexactFloat64()
		}
	}
	return rec, nil
}

// xmlNode is a generic element tree, enough to walk descendant paths the way
// the various schema dialects require.
type xmlNode struct {
	XMLName xml.Name
	Text    string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// first returns the text of the first path variant that resolves.
func (n *xmlNode) first(paths [][]string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(n.find(p)); v != "" {
			return v
		}
	}
	return ""
}

// find locates a descendant chain: the first path element may sit at any
// depth, the rest must nest directly under it.
func (n *xmlNode) find(path []string) string {
	if len(path) == 0 {
		return ""
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local == path[0] {
			if len(path) == 1 {
				return child.Text
			}
			if v := child.findNested(path[1:]); v != "" {
				return v
			}
		}
		if v := child.find(path); v != "" {
			return v
		}
	}
	return ""
}

func (n *xmlNode) findNested(path []string) string {
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local != path[0] {
			continue
		}
		if len(path) == 1 {
			return child.Text
		}
		if v := child.findNested(path[1:]); v != "" {
			return v
		}
	}
	return ""
}
