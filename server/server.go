// Package server exposes the analyst over HTTP: upload a dataset, fix its
// quality issues, ask questions per tab, download summaries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/smallnest/datalyst/agent"
	"github.com/smallnest/datalyst/config"
	"github.com/smallnest/datalyst/dataset"
	"github.com/smallnest/datalyst/log"
	"github.com/smallnest/datalyst/render"
	"github.com/smallnest/datalyst/session"
)

// Server is the HTTP front of the analyst.
type Server struct {
	cfg      *config.Config
	agent    *agent.Agent
	sessions *session.Manager

	httpServer *http.Server
}

// New creates a server over the given agent and session manager.
func New(cfg *config.Config, a *agent.Agent, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		agent:    a,
		sessions: sessions,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/sessions/{id}/autocorrect", s.handleAutoCorrect)
	mux.HandleFunc("POST /api/sessions/{id}/keep", s.handleKeep)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/sessions/{id}/summaries/{seq}/download", s.handleSummaryDownload)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleReset)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() error {
	log.Info("datalyst listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleUpload accepts a multipart CSV file or a JSON body naming a URL
// whose first HTML table becomes the dataset. It creates a session and
// returns a preview plus the validation report.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)

	var frame *dataset.Frame
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		file, header, err := r.FormFile("file")
		if err != nil {
			sendJSONError(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		frame, err = dataset.ReadCSV(file)
		if err != nil {
			sendJSONError(w, fmt.Sprintf("failed to parse %s: %v", header.Filename, err), http.StatusBadRequest)
			return
		}
	default:
		var req UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			sendJSONError(w, "expect a multipart CSV upload or a JSON body with a url", http.StatusBadRequest)
			return
		}
		var err error
		frame, err = dataset.FetchHTMLTable(r.Context(), req.URL)
		if err != nil {
			sendJSONError(w, fmt.Sprintf("failed to load table from %s: %v", req.URL, err), http.StatusBadRequest)
			return
		}
	}

	sess := s.sessions.Create(frame)
	log.Info("session %s created: %d rows, %d columns", sess.ID, frame.Len(), len(frame.Columns()))

	sendJSONResponse(w, uploadResponse(sess))
}

// handleAutoCorrect replaces the session frame with its auto-corrected
// version and reruns validation.
func (s *Server) handleAutoCorrect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	corrected := sess.Frame().AutoCorrect()
	sess, err := s.sessions.ReplaceFrame(sess.ID, corrected, true)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Info("session %s auto-corrected: %d rows remain", sess.ID, corrected.Len())

	sendJSONResponse(w, uploadResponse(sess))
}

// handleKeep keeps the original data despite reported issues.
func (s *Server) handleKeep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sendJSONResponse(w, uploadResponse(sess))
}

// handleAsk runs one question through the agent and appends the answer to
// the session history.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" && req.Intent != string(agent.IntentSummary) {
		sendJSONError(w, "question is required", http.StatusBadRequest)
		return
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	intent := agent.Intent(req.Intent)
	if req.Intent != "" && !intent.Valid() {
		sendJSONError(w, fmt.Sprintf("unknown intent %q", req.Intent), http.StatusBadRequest)
		return
	}

	out, err := s.agent.Run(r.Context(), agent.State{
		SessionID: sess.ID,
		Query:     req.Question,
		Intent:    intent,
		Frame:     sess.Frame(),
	})
	if err != nil {
		log.Error("session %s: question failed: %v", sess.ID, err)
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrBadPlan) || errors.Is(err, dataset.ErrUnknownColumn) {
			status = http.StatusUnprocessableEntity
		}
		sendJSONError(w, err.Error(), status)
		return
	}

	answer := buildAnswer(&out)
	entry, err := s.sessions.Append(r.Context(), sess.ID, session.Tab(out.Intent), req.Question, answer, out.Expression, out.ModelUsed)
	if err != nil {
		log.Error("session %s: failed to record history: %v", sess.ID, err)
		sendJSONError(w, "failed to record history", http.StatusInternalServerError)
		return
	}

	sendJSONResponse(w, AskResponse{
		SessionID: sess.ID,
		Intent:    string(out.Intent),
		Answer:    answer,
		Code:      out.Expression,
		Model:     out.ModelUsed,
		Seq:       entry.Seq,
	})
}

// handleHistory returns a tab's entries, or all tabs when none is given.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	tab := session.Tab(r.URL.Query().Get("tab"))
	if tab != "" && !tab.Valid() {
		sendJSONError(w, fmt.Sprintf("unknown tab %q", tab), http.StatusBadRequest)
		return
	}

	entries, err := s.sessions.History(r.Context(), sess.ID, tab)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*session.Entry{}
	}

	sendJSONResponse(w, HistoryResponse{
		SessionID: sess.ID,
		Tab:       string(tab),
		Entries:   entries,
	})
}

// handleSummaryDownload serves a summary answer as a text attachment.
func (s *Server) handleSummaryDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil || seq <= 0 {
		sendJSONError(w, "invalid summary number", http.StatusBadRequest)
		return
	}

	entry, err := s.sessions.Entry(r.Context(), sess.ID, session.TabSummary, seq)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	var answer Answer
	if err := json.Unmarshal(entry.Answer, &answer); err != nil {
		sendJSONError(w, "stored summary is unreadable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=summary_%d.txt", seq))
	fmt.Fprint(w, answer.Text)
}

// handleReset drops the session and all its history, the back-to-upload
// action.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Reset(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		sendJSONError(w, err.Error(), status)
		return
	}
	log.Info("session %s reset", id)
	sendJSONResponse(w, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, HealthResponse{
		Status:   "ok",
		Sessions: s.sessions.Count(),
	})
}

// session resolves the {id} path segment, writing a JSON 404 on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func uploadResponse(sess *session.Session) UploadResponse {
	frame, report, corrected := sess.Data()
	return UploadResponse{
		SessionID: sess.ID,
		Columns:   frame.Columns(),
		Preview:   frame.Head(5).Rows(),
		Rows:      frame.Len(),
		Report:    report,
		Corrected: corrected,
	}
}

// buildAnswer shapes the agent output for the response and the history
// record.
func buildAnswer(out *agent.State) Answer {
	switch out.Intent {
	case agent.IntentVisualization:
		return Answer{Type: "figure", Figure: out.Figure}
	case agent.IntentSummary:
		return Answer{
			Type: "text",
			Text: out.Answer,
			HTML: render.HTML(out.Answer),
		}
	default:
		return Answer{
			Type:    "table",
			Columns: out.Result.Columns(),
			Rows:    out.Result.Rows(),
		}
	}
}

// sendJSONResponse sends a JSON response.
func sendJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// sendJSONError sends a JSON error response.
func sendJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
