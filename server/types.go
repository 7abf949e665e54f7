package server

import (
	"github.com/smallnest/datalyst/chart"
	"github.com/smallnest/datalyst/dataset"
	"github.com/smallnest/datalyst/session"
)

// UploadRequest is the JSON body for URL-based dataset import.
type UploadRequest struct {
	URL string `json:"url"`
}

// UploadResponse describes a freshly created session.
type UploadResponse struct {
	SessionID string          `json:"session_id"`
	Columns   []string        `json:"columns"`
	Preview   [][]string      `json:"preview"`
	Rows      int             `json:"rows"`
	Report    *dataset.Report `json:"report"`
	Corrected bool            `json:"corrected"`
}

// AskRequest is one question against a session's dataset.
type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`

	// Intent is optional; when empty the agent classifies the question.
	Intent string `json:"intent,omitempty"`
}

// Answer is the payload of one answered question. Type tells the front end
// which fields are set: "table", "figure" or "text".
type Answer struct {
	Type    string        `json:"type"`
	Columns []string      `json:"columns,omitempty"`
	Rows    [][]string    `json:"rows,omitempty"`
	Figure  *chart.Figure `json:"figure,omitempty"`
	Text    string        `json:"text,omitempty"`
	HTML    string        `json:"html,omitempty"`
}

// AskResponse carries the answer plus the executed plan expression, which
// clients show in place of generated code.
type AskResponse struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Answer    Answer `json:"answer"`
	Code      string `json:"code,omitempty"`
	Model     string `json:"model"`
	Seq       int    `json:"seq"`
}

// HistoryResponse lists a tab's answered questions.
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Tab       string           `json:"tab,omitempty"`
	Entries   []*session.Entry `json:"entries"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
