package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTable is returned when an HTML document contains no <table>.
var ErrNoTable = errors.New("no table found in document")

// ReadHTMLTable parses the first <table> of an HTML document into a frame.
// Header cells come from <th> elements when present, otherwise from the
// first row.
func ReadHTMLTable(r io.Reader) (*Frame, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	var header []string
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if header == nil {
			header = cells
			return
		}
		rows = append(rows, cells)
	})

	if header == nil {
		return nil, ErrNoTable
	}

	// Tables in the wild have ragged rows (colspans, trailing cells); pad or
	// truncate to the header width.
	for i, row := range rows {
		switch {
		case len(row) < len(header):
			padded := make([]string, len(header))
			copy(padded, row)
			rows[i] = padded
		case len(row) > len(header):
			rows[i] = row[:len(header)]
		}
	}
	return New(header, rows)
}

// FetchHTMLTable downloads a page and parses its first table into a frame.
func FetchHTMLTable(ctx context.Context, url string) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return ReadHTMLTable(resp.Body)
}
