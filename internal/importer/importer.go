// Package importer reads flashcards from spreadsheet uploads. Column A holds
// the front of the card, column B the back; an optional header row is
// skipped.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vytor/studyflash/internal/models"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")

// Result holds the parsed cards and the rows that were rejected.
type Result struct {
	Cards   []models.CardInput
	Skipped int
	Errors  []string
}

var headerNames = map[string]bool{"front": true, "question": true, "term": true, "word": true}

// Parse reads cards from r, picking the format from the file name.
func Parse(r io.Reader, filename string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx", ".xlsm":
		return parseExcel(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseExcel(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	res := &Result{}
	for i, row := range rows {
		res.add(row, i+1)
	}
	return res, nil
}

func parseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	res := &Result{}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		res.add(row, rowNum)
	}
	return res, nil
}

func (res *Result) add(row []string, rowNum int) {
	var front, back string
	if len(row) > 0 {
		front = strings.TrimSpace(row[0])
	}
	if len(row) > 1 {
		back = strings.TrimSpace(row[1])
	}

	switch {
	case front == "" && back == "":
		return
	case rowNum == 1 && headerNames[strings.ToLower(front)]:
		return
	case front == "":
		res.reject(rowNum, "front is empty")
	case back == "":
		res.reject(rowNum, "back is empty")
	default:
		res.Cards = append(res.Cards, models.CardInput{Front: front, Back: back})
	}
}

func (res *Result) reject(rowNum int, reason string) {
	res.Skipped++
	res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", rowNum, reason))
}
