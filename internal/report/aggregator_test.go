package report

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

const phrase = "move to BAD, needs to contacted by MIKE/SAIPI"

var week = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func entry(borrower string, balance string, days int, contacted bool, note string) models.ActionEntry {
	b := decimal.RequireFromString(balance)
	return models.ActionEntry{
		Week:      week,
		LoanKey:   models.NewLoanKey(borrower, b),
		Borrower:  borrower,
		Balance:   b,
		DaysLate:  days,
		Contacted: contacted,
		Note:      note,
	}
}

func ledgerOf(entries ...models.ActionEntry) *models.WeeklyLedger {
	return &models.WeeklyLedger{Week: week, Entries: entries}
}

func TestBuildTakeActionEmpty(t *testing.T) {
	assert.Nil(t, BuildTakeAction(nil, SplitPosition))
	assert.Nil(t, BuildTakeAction(ledgerOf(), SplitPosition))
}

func TestBuildTakeActionStats(t *testing.T) {
	r := BuildTakeAction(ledgerOf(
		entry("A", "100", 22, true, "called"),
		entry("B", "200", 23, false, ""),
		entry("C", "300", 24, true, "paid"),
		entry("D", "400", 25, false, "voicemail"),
	), SplitPosition)
	require.NotNil(t, r)

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Contacted)
	assert.Equal(t, 2, r.NotContacted)
	assert.Equal(t, "50%", r.ContactedPct)
	assert.Equal(t, "50%", r.NotContactedPct)

	require.Len(t, r.HighRisk.Contacted, 1)
	require.Len(t, r.HighRisk.NotContacted, 1)
	assert.Equal(t, "called", r.HighRisk.Contacted[0].Note)
	assert.Equal(t, NotContactedNote, r.HighRisk.NotContacted[0].Note)
	assert.Equal(t, NotContactedNote, r.Critical.NotContacted[0].Note)
	assert.Equal(t, "$400.00", r.Critical.NotContacted[0].Balance)
}

func TestBuildTakeActionOddSplit(t *testing.T) {
	r := BuildTakeAction(ledgerOf(
		entry("A", "1", 22, false, ""),
		entry("B", "2", 30, false, ""),
		entry("C", "3", 40, false, ""),
	), SplitPosition)
	require.NotNil(t, r)

	assert.Len(t, r.HighRisk.NotContacted, 1)
	assert.Equal(t, "A", r.HighRisk.NotContacted[0].Borrower)
	assert.Len(t, r.Critical.NotContacted, 2)
}

func TestBuildTakeActionPositionIgnoresCategory(t *testing.T) {
	critical := entry("A", "1", 40, false, "")
	critical.Category = models.TierCritical
	high := entry("B", "2", 30, false, "")
	high.Category = models.TierHighRisk

	positional := BuildTakeAction(ledgerOf(critical, high), SplitPosition)
	assert.Equal(t, "A", positional.HighRisk.NotContacted[0].Borrower)

	byCategory := BuildTakeAction(ledgerOf(critical, high), SplitCategory)
	assert.Equal(t, "B", byCategory.HighRisk.NotContacted[0].Borrower)
	assert.Equal(t, "A", byCategory.Critical.NotContacted[0].Borrower)
}

func TestBuildTakeActionPercentagesSumTo100(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for contacted := 0; contacted <= total; contacted++ {
			entries := make([]models.ActionEntry, total)
			for i := range entries {
				entries[i] = entry(fmt.Sprintf("b%d", i), "1", 30, i < contacted, "n")
			}
			r := BuildTakeAction(ledgerOf(entries...), SplitPosition)
			require.NotNil(t, r)

			c, err := strconv.Atoi(strings.TrimSuffix(r.ContactedPct, "%"))
			require.NoError(t, err)
			n, err := strconv.Atoi(strings.TrimSuffix(r.NotContactedPct, "%"))
			require.NoError(t, err)
			require.Equal(t, 100, c+n, "total=%d contacted=%d", total, contacted)
		}
	}
}

func TestNoteMatchingIgnoresCaseAndSpacing(t *testing.T) {
	const configured = "Move To Bad"
	for _, note := range []string{"Move To Bad", "move   to bad", " MOVE TO BAD ", "move\tto\nbad"} {
		assert.True(t, NoteMatches(note, configured), note)
	}
	assert.False(t, NoteMatches("move to bad later", configured))
	assert.False(t, NoteMatches("", configured))
}

func TestBuildMustContactNoMatches(t *testing.T) {
	l := ledgerOf(entry("A", "1", 30, true, "called"), entry("B", "2", 30, false, ""))
	assert.Nil(t, BuildMustContact(l, nil, phrase))
	assert.Nil(t, BuildMustContact(nil, nil, phrase))
}

func TestBuildMustContactBucketsAndSorts(t *testing.T) {
	escalate := "  MOVE to bad,  needs to contacted by mike/saipi "
	l := ledgerOf(
		entry("Ann", "1500", 25, true, escalate),
		entry("Bo", "800", 10, true, phrase),
		entry("Cy", "950.5", 0, true, phrase),
		entry("Dee", "50", 23, true, phrase),
		entry("Eve", "60", 40, true, "called"),
		entry("Fay", "70", 5, true, phrase),
	)
	loans := []models.LoanRecord{
		{Borrower: "Ann", DaysLate: 28, HasTitle: true},
		{Borrower: "Bo", DaysLate: 30},
		{Borrower: "Bo", DaysLate: 35, HasGuarantor: false},
		{Borrower: "Cy ", DaysLate: 22},
		{Borrower: "Cy", DaysLate: 12, HasGuarantor: true},
	}

	r := BuildMustContact(l, loans, phrase)
	require.NotNil(t, r)
	assert.Equal(t, phrase, r.ExpectedNote)

	require.Len(t, r.Critical.Rows, 2)
	assert.Equal(t, "Bo", r.Critical.Rows[0].Borrower)
	assert.Equal(t, 35, r.Critical.Rows[0].DaysLate)
	assert.Equal(t, "Dee", r.Critical.Rows[1].Borrower)
	assert.Equal(t, 23, r.Critical.Rows[1].DaysLate)

	require.Len(t, r.HighRisk.Rows, 2)
	assert.Equal(t, "Ann", r.HighRisk.Rows[0].Borrower)
	assert.Equal(t, 28, r.HighRisk.Rows[0].DaysLate)
	assert.Equal(t, "Cy", r.HighRisk.Rows[1].Borrower)
	assert.Equal(t, "$950.50", r.HighRisk.Rows[1].Balance)
}

func TestFormatCurrency(t *testing.T) {
	tests := map[string]string{
		"0":          "$0.00",
		"12.5":       "$12.50",
		"999.999":    "$1,000.00",
		"1500":       "$1,500.00",
		"1234567.89": "$1,234,567.89",
		"-42.1":      "$-42.10",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}

func TestParseSplitMode(t *testing.T) {
	m, err := ParseSplitMode("CATEGORY")
	require.NoError(t, err)
	assert.Equal(t, SplitCategory, m)
	_, err = ParseSplitMode("tier")
	assert.Error(t, err)
}
