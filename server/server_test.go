package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallnest/datalyst/agent"
	"github.com/smallnest/datalyst/config"
	"github.com/smallnest/datalyst/llm"
	"github.com/smallnest/datalyst/session"
	"github.com/smallnest/datalyst/session/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "region,sales\nNorth,100\nSouth,150\nNorth,120\n"

const dirtyCSV = "region,sales\nNorth,100\nNorth,100\nSouth,\n"

type fakeModel struct {
	name      string
	responses []string
	calls     int
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Generate(ctx context.Context, messages []llm.Message, opts *llm.GenerateOptions) (string, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func newTestServer(t *testing.T, responses ...string) *Server {
	t.Helper()
	if len(responses) == 0 {
		responses = []string{`{"steps":[{"op":"describe"}]}`}
	}
	model := &fakeModel{name: "fake-model", responses: responses}
	a, err := agent.New(llm.NewRouter(model, nil), agent.Options{})
	require.NoError(t, err)

	cfg := &config.Config{
		Host:          "127.0.0.1",
		Port:          0,
		MaxUploadSize: 1 << 20,
	}
	return New(cfg, a, session.NewManager(memory.NewMemoryStore()))
}

func uploadCSV(t *testing.T, srv *Server, csv string) UploadResponse {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func doJSON(t *testing.T, srv *Server, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUpload_CSV(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCSV(t, srv, salesCSV)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, []string{"region", "sales"}, resp.Columns)
	assert.Equal(t, 3, resp.Rows)
	assert.Len(t, resp.Preview, 3)
	assert.False(t, resp.Report.HasIssues())
}

func TestUpload_InvalidCSV(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "empty.csv")
	part.Write([]byte(""))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestUpload_FromURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table>
			<tr><th>city</th><th>pop</th></tr>
			<tr><td>Oslo</td><td>700000</td></tr>
		</table></body></html>`)
	}))
	defer page.Close()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/upload", UploadRequest{URL: page.URL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"city", "pop"}, resp.Columns)
	assert.Equal(t, 1, resp.Rows)
}

func TestAutoCorrect(t *testing.T) {
	srv := newTestServer(t)
	up := uploadCSV(t, srv, dirtyCSV)
	assert.True(t, up.Report.HasIssues())

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+up.SessionID+"/autocorrect", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Corrected)
	// Duplicate row dropped, missing value median-filled.
	assert.Equal(t, 2, resp.Rows)
	assert.False(t, resp.Report.HasIssues())
}

func TestKeep(t *testing.T) {
	srv := newTestServer(t)
	up := uploadCSV(t, srv, dirtyCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+up.SessionID+"/keep", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Corrected)
	assert.Equal(t, 3, resp.Rows)
}

func TestAsk_Analysis(t *testing.T) {
	srv := newTestServer(t, `{"steps":[{"op":"groupby","by":"region","agg":"sum","target":"sales"}]}`)
	up := uploadCSV(t, srv, salesCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
		SessionID: up.SessionID,
		Question:  "total sales per region",
		Intent:    "analysis",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "analysis", resp.Intent)
	assert.Equal(t, "table", resp.Answer.Type)
	assert.Equal(t, []string{"region", "sum_sales"}, resp.Answer.Columns)
	assert.Equal(t, [][]string{{"North", "220"}, {"South", "150"}}, resp.Answer.Rows)
	assert.Equal(t, "groupby(region, sum(sales))", resp.Code)
	assert.Equal(t, "fake-model", resp.Model)
	assert.Equal(t, 1, resp.Seq)
}

func TestAsk_Visualization(t *testing.T) {
	srv := newTestServer(t, `{"steps":[{"op":"groupby","by":"region","agg":"sum","target":"sales"}],"chart":{"kind":"bar","x":"region","y":"sum_sales"}}`)
	up := uploadCSV(t, srv, salesCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
		SessionID: up.SessionID,
		Question:  "chart of sales by region",
		Intent:    "visualization",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "figure", resp.Answer.Type)
	require.NotNil(t, resp.Answer.Figure)
	require.Len(t, resp.Answer.Figure.Data, 1)
	assert.Equal(t, "bar", resp.Answer.Figure.Data[0].Type)
}

func TestAsk_SummaryAndDownload(t *testing.T) {
	srv := newTestServer(t, "Sales are concentrated in the **North** region.")
	up := uploadCSV(t, srv, salesCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
		SessionID: up.SessionID,
		Intent:    "summary",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "text", resp.Answer.Type)
	assert.Contains(t, resp.Answer.Text, "North")
	assert.Contains(t, resp.Answer.HTML, "<strong>North</strong>")
	assert.Equal(t, 1, resp.Seq)

	// Download the stored summary as plain text.
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+up.SessionID+"/summaries/1/download", nil)
	dl := httptest.NewRecorder()
	srv.Handler().ServeHTTP(dl, req)

	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "attachment; filename=summary_1.txt", dl.Header().Get("Content-Disposition"))
	assert.Equal(t, "Sales are concentrated in the **North** region.", dl.Body.String())
}

func TestAsk_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
		SessionID: "nope",
		Question:  "anything",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsk_InvalidIntent(t *testing.T) {
	srv := newTestServer(t)
	up := uploadCSV(t, srv, salesCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
		SessionID: up.SessionID,
		Question:  "anything",
		Intent:    "prophecy",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, `{"steps":[{"op":"describe"}]}`)
	up := uploadCSV(t, srv, salesCSV)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/ask", AskRequest{
			SessionID: up.SessionID,
			Question:  "describe the data",
			Intent:    "analysis",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+up.SessionID+"/history?tab=analysis", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, 1, resp.Entries[0].Seq)
	assert.Equal(t, 2, resp.Entries[1].Seq)

	// Unknown tab is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+up.SessionID+"/history?tab=reports", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	up := uploadCSV(t, srv, salesCSV)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+up.SessionID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Session is gone afterwards.
	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+up.SessionID+"/keep", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/"+up.SessionID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, salesCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}
