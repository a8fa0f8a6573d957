package api

import (
	"net/http"
	"net/url"
	"strings"
)

// Operation names one backend call.
type Operation string

const (
	OpHealth     Operation = "health"
	OpUpload     Operation = "upload"
	OpProcess    Operation = "process"
	OpStatus     Operation = "status"
	OpResults    Operation = "results"
	OpExportCSV  Operation = "export_csv"
	OpExportJSON Operation = "export_json"
)

// ResponseType tells the client how to treat a successful response body.
type ResponseType int

const (
	// ResponseJSON bodies are decoded as JSON.
	ResponseJSON ResponseType = iota
	// ResponseBlob bodies are returned as raw bytes and never decoded.
	ResponseBlob
)

func (t ResponseType) String() string {
	if t == ResponseBlob {
		return "blob"
	}
	return "json"
}

// Endpoint describes one route of the backend contract.
type Endpoint struct {
	Op       Operation
	Method   string
	Path     string // may contain {job_id}
	Response ResponseType
}

// Endpoints is the full backend contract keyed by operation.
var Endpoints = map[Operation]Endpoint{
	OpHealth:     {OpHealth, http.MethodGet, "/health", ResponseJSON},
	OpUpload:     {OpUpload, http.MethodPost, "/api/upload", ResponseJSON},
	OpProcess:    {OpProcess, http.MethodPost, "/api/process/{job_id}", ResponseJSON},
	OpStatus:     {OpStatus, http.MethodGet, "/api/status/{job_id}", ResponseJSON},
	OpResults:    {OpResults, http.MethodGet, "/api/results/{job_id}", ResponseJSON},
	OpExportCSV:  {OpExportCSV, http.MethodGet, "/api/export/csv/{job_id}", ResponseBlob},
	OpExportJSON: {OpExportJSON, http.MethodGet, "/api/export/json/{job_id}", ResponseBlob},
}

// Resolve expands the path template for a job id.
func (e Endpoint) Resolve(jobID string) string {
	return strings.ReplaceAll(e.Path, "{job_id}", url.PathEscape(jobID))
}

// ExportFilename returns the fixed download name for an export operation.
func ExportFilename(op Operation, jobID string) string {
	switch op {
	case OpExportCSV:
		return "cleaned_data_" + jobID + ".csv"
	case OpExportJSON:
		return "results_" + jobID + ".json"
	}
	return jobID
}
