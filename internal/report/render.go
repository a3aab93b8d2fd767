package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/models"
)

// ErrRenderFailure is returned when a report document cannot be written
var ErrRenderFailure = errors.New("failed to render report")

// Renderer turns aggregated reports into documents and returns their paths
type Renderer interface {
	RenderTakeAction(ctx context.Context, r *models.TakeActionReport) (string, error)
	RenderMustContact(ctx context.Context, r *models.MustContactReport) (string, error)
}

const reportStyle = `body{font-family:Arial,sans-serif;margin:24px}
table{border-collapse:collapse;width:100%;margin-bottom:24px}
th,td{border:1px solid #ccc;padding:6px 10px;text-align:left}
th{background:#f2f2f2}
.summary td{font-weight:bold}`

// HTMLRenderer writes reports as standalone HTML files
type HTMLRenderer struct {
	dir string
	log *logrus.Logger
}

// NewHTMLRenderer creates a renderer writing into dir
func NewHTMLRenderer(dir string, log *logrus.Logger) *HTMLRenderer {
	return &HTMLRenderer{dir: dir, log: log}
}

// TakeActionFileName returns the file name of the take-action report for a week
func TakeActionFileName(r *models.TakeActionReport) string {
	return fmt.Sprintf("TakeAction_Report_%s.html", ledger.FormatWeekTag(r.Week))
}

// MustContactFileName returns the file name of the executive report for a week
func MustContactFileName(r *models.MustContactReport) string {
	return fmt.Sprintf("CEO_MustContact_%s.html", ledger.FormatWeekTag(r.Week))
}

// RenderTakeAction writes the take-action worksheet
func (h *HTMLRenderer) RenderTakeAction(ctx context.Context, r *models.TakeActionReport) (string, error) {
	title := "Take Action Report - " + ledger.FormatWeekTag(r.Week)
	doc, body := newDocument(title)

	summary := body.CreateElement("table")
	summary.CreateAttr("class", "summary")
	summary.CreateAttr("id", "summary")
	headerRow(summary, "Total", "Contacted", "Not Contacted", "Contacted %", "Not Contacted %")
	dataRow(summary,
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Contacted),
		strconv.Itoa(r.NotContacted),
		r.ContactedPct,
		r.NotContactedPct,
	)

	for _, bucket := range []models.ReportBucket{r.HighRisk, r.Critical} {
		body.CreateElement("h2").SetText(bucket.Name)
		rowsTable(body, sectionID(bucket.Name, "contacted"), "Contacted", bucket.Contacted)
		rowsTable(body, sectionID(bucket.Name, "not-contacted"), "Not Contacted", bucket.NotContacted)
	}

	return h.write(doc, TakeActionFileName(r))
}

// RenderMustContact writes the executive must-contact report
func (h *HTMLRenderer) RenderMustContact(ctx context.Context, r *models.MustContactReport) (string, error) {
	title := "CEO Must Contact Report - " + ledger.FormatWeekTag(r.Week)
	doc, body := newDocument(title)
	body.CreateElement("p").SetText("Loans noted: " + r.ExpectedNote)

	for _, bucket := range []models.ReportBucket{r.Critical, r.HighRisk} {
		body.CreateElement("h2").SetText(bucket.Name)
		rowsTable(body, sectionID(bucket.Name, "rows"), "", bucket.Rows)
	}

	return h.write(doc, MustContactFileName(r))
}

func (h *HTMLRenderer) write(doc *etree.Document, name string) (string, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	path := filepath.Join(h.dir, name)
	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	h.log.WithField("path", path).Info("Report written")
	return path, nil
}

func newDocument(title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateDirective("DOCTYPE html")
	html := doc.CreateElement("html")
	html.CreateAttr("lang", "en")

	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	head.CreateElement("title").SetText(title)
	head.CreateElement("style").SetText(reportStyle)

	body := html.CreateElement("body")
	body.CreateElement("h1").SetText(title)
	return doc, body
}

func rowsTable(parent *etree.Element, id, caption string, rows []models.ReportRow) {
	table := parent.CreateElement("table")
	table.CreateAttr("id", id)
	if caption != "" {
		table.CreateElement("caption").SetText(caption)
	}
	headerRow(table, "Borrower", "Principal Balance", "Days Late", "Contacted", "Note")
	if len(rows) == 0 {
		td := table.CreateElement("tr").CreateElement("td")
		td.CreateAttr("colspan", "5")
		td.SetText("None")
		return
	}
	for _, row := range rows {
		contacted := "No"
		if row.Contacted {
			contacted = "Yes"
		}
		tr := dataRow(table, row.Borrower, row.Balance, strconv.Itoa(row.DaysLate), contacted, row.Note)
		tr.CreateAttr("data-loan-key", string(row.LoanKey))
	}
}

func headerRow(table *etree.Element, cells ...string) {
	tr := table.CreateElement("tr")
	for _, c := range cells {
		tr.CreateElement("th").SetText(c)
	}
}

func dataRow(table *etree.Element, cells ...string) *etree.Element {
	tr := table.CreateElement("tr")
	for _, c := range cells {
		tr.CreateElement("td").SetText(c)
	}
	return tr
}

func sectionID(bucket, section string) string {
	switch models.RiskTier(bucket) {
	case models.TierHighRisk:
		return "high-risk-" + section
	case models.TierCritical:
		return "critical-" + section
	}
	return section
}
