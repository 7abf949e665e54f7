package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableHTML = `<html><body>
<table>
  <tr><th>city</th><th>population</th></tr>
  <tr><td>Oslo</td><td>709000</td></tr>
  <tr><td>Bergen</td><td>291000</td></tr>
</table>
</body></html>`

func TestReadHTMLTable(t *testing.T) {
	f, err := ReadHTMLTable(strings.NewReader(tableHTML))
	require.NoError(t, err)

	assert.Equal(t, []string{"city", "population"}, f.Columns())
	assert.Equal(t, 2, f.Len())

	kind, err := f.Kind("population")
	require.NoError(t, err)
	assert.Equal(t, KindNumber, kind)
}

func TestReadHTMLTable_NoTable(t *testing.T) {
	_, err := ReadHTMLTable(strings.NewReader("<html><body><p>hi</p></body></html>"))
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestReadHTMLTable_RaggedRowsArePadded(t *testing.T) {
	html := `<table>
	  <tr><th>a</th><th>b</th></tr>
	  <tr><td>1</td></tr>
	  <tr><td>2</td><td>3</td><td>4</td></tr>
	</table>`

	f, err := ReadHTMLTable(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"1", ""}, f.Row(0))
	assert.Equal(t, []string{"2", "3"}, f.Row(1))
}

func TestFetchHTMLTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tableHTML))
	}))
	defer srv.Close()

	f, err := FetchHTMLTable(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
}

func TestFetchHTMLTable_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchHTMLTable(context.Background(), srv.URL)
	assert.Error(t, err)
}
