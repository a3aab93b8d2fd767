package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/risk"
)

// ErrMissingDataset is returned when no snapshot is available or it holds no loans
var ErrMissingDataset = errors.New("loan snapshot not available")

// Snapshot column headers
const (
	ColBorrower         = "Borrower"
	ColPrincipalBalance = "Principal Balance"
	ColDaysLate         = "Days Late"
	ColGroup            = "Group"
	ColContract         = "Contract"
	ColGuarantor        = "Guarantor"
	ColTitleOwnership   = "Title Ownership"
	ColStatus           = "Status"
)

// Source supplies the latest loan snapshot
type Source interface {
	Loans(ctx context.Context) ([]models.LoanRecord, error)
}

// MalformedRowError describes a snapshot row that lacks expected columns
type MalformedRowError struct {
	Line    int
	Missing []string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d is missing columns: %s", e.Line, strings.Join(e.Missing, ", "))
}

// FileSource reads the snapshot export written by the acquisition job
type FileSource struct {
	path string
	log  *logrus.Logger
}

// NewFileSource creates a source for the CSV export at path
func NewFileSource(path string, log *logrus.Logger) *FileSource {
	return &FileSource{path: path, log: log}
}

// Path returns the snapshot file location
func (s *FileSource) Path() string {
	return s.path
}

// Loans reads and classifies every row of the snapshot
func (s *FileSource) Loans(ctx context.Context) ([]models.LoanRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingDataset, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	loans, malformed, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if len(malformed) > 0 {
		s.log.WithField("path", s.path).Warnf("Snapshot has %d malformed rows, first: %v", len(malformed), malformed[0])
	}
	if len(loans) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingDataset, s.path)
	}
	return loans, nil
}

// Parse reads a CSV snapshot with a header row. Rows missing expected columns
// are kept with default values and reported in the returned malformed list.
func Parse(r io.Reader) ([]models.LoanRecord, []*MalformedRowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeHeader(name)] = i
	}

	var (
		loans     []models.LoanRecord
		malformed []*MalformedRowError
		line      = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read snapshot row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		row := rowReader{record: record, index: index}
		loan := models.LoanRecord{
			Borrower:         strings.TrimSpace(row.get(ColBorrower)),
			PrincipalBalance: parseAmount(row.get(ColPrincipalBalance)),
			DaysLate:         parseDays(row.get(ColDaysLate)),
			Group:            strings.TrimSpace(row.get(ColGroup)),
			Status:           strings.TrimSpace(row.get(ColStatus)),
			HasContract:      risk.HasContract(row.get(ColContract)),
			HasGuarantor:     risk.HasGuarantor(row.get(ColGuarantor)),
			HasTitle:         risk.HasTitle(row.get(ColTitleOwnership)),
		}
		loan.ActivityStatus = risk.Activity(loan.Group)
		loan.RiskTier = risk.Classify(loan)
		loans = append(loans, loan)

		if len(row.missing) > 0 {
			malformed = append(malformed, &MalformedRowError{Line: line, Missing: row.missing})
		}
	}
	return loans, malformed, nil
}

type rowReader struct {
	record  []string
	index   map[string]int
	missing []string
}

func (r *rowReader) get(column string) string {
	i, ok := r.index[normalizeHeader(column)]
	if !ok || i >= len(r.record) {
		r.missing = append(r.missing, column)
		return ""
	}
	return r.record[i]
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseAmount(s string) decimal.Decimal {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDays(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
