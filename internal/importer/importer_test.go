package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/importer"
	"github.com/vytor/studyflash/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestParse_CSV(t *testing.T) {
	in := "front,back\n" +
		"What is a goroutine?, A lightweight thread\n" +
		"\"Quoted, front\",with comma\n" +
		",missing front\n" +
		"only front\n"

	res, err := importer.Parse(strings.NewReader(in), "deck.CSV")
	require.NoError(t, err)

	assert.Equal(t, []models.CardInput{
		{Front: "What is a goroutine?", Back: "A lightweight thread"},
		{Front: "Quoted, front", Back: "with comma"},
	}, res.Cards)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"row 4: front is empty", "row 5: back is empty"}, res.Errors)
}

func TestParse_Excel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"Question", "Answer"},
		{"defer", "runs at function return"},
		{"select", ""},
		{"chan", "typed conduit"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := importer.Parse(bytes.NewReader(buf.Bytes()), "deck.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []models.CardInput{
		{Front: "defer", Back: "runs at function return"},
		{Front: "chan", Back: "typed conduit"},
	}, res.Cards)
	assert.Equal(t, 1, res.Skipped)
}

func TestParse_Rejects(t *testing.T) {
	_, err := importer.Parse(strings.NewReader("x"), "deck.txt")
	assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)

	_, err = importer.Parse(strings.NewReader("not a zip"), "deck.xlsx")
	assert.Error(t, err)
}
