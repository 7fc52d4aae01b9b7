package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zombor/caixa/internal/ledger"
	"github.com/zombor/caixa/internal/scanning"
)

// maxScanSize bounds check photo uploads
const maxScanSize = int64(20 << 20)

type fieldUpdateRequest struct {
	Field string          `json:"field" validate:"required"`
	Value json.RawMessage `json:"value"`
}

type checkSeriesRequest struct {
	Kind             string          `json:"kind" validate:"omitempty,oneof=sight predated"`
	Bank             string          `json:"bank" validate:"max=80"`
	Branch           string          `json:"branch" validate:"max=20"`
	Number           string          `json:"number" validate:"max=40"`
	ClientName       string          `json:"client_name" validate:"required,max=120"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count" validate:"lte=120"`
	FirstDueDate     string          `json:"first_due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (req checkSeriesRequest) series() ledger.CheckSeries {
	cs := ledger.CheckSeries{
		Kind:             ledger.CheckKind(req.Kind),
		Bank:             req.Bank,
		Branch:           req.Branch,
		Number:           req.Number,
		ClientName:       req.ClientName,
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
	}
	if d, err := time.Parse("2006-01-02", req.FirstDueDate); err == nil {
		cs.FirstDueDate = &d
	}
	return cs
}

type cancellationRequest struct {
	OrderNumber      string          `json:"order_number" validate:"required"`
	NewOrderNumber   string          `json:"new_order_number"`
	CancelTime       *time.Time      `json:"cancel_time"`
	Seller           string          `json:"seller" validate:"required"`
	Reason           string          `json:"reason" validate:"required"`
	ManagerSignature string          `json:"manager_signature"`
	Amount           decimal.Decimal `json:"amount"`
}

type scanResponse struct {
	Check  *scanning.CheckData `json:"check"`
	Series ledger.CheckSeries  `json:"series"`
}

type closeOutStatus struct {
	State  State   `json:"state"`
	Report *Report `json:"report,omitempty"`
}

type errorResponse struct {
	Error   string              `json:"error"`
	Details []string            `json:"details,omitempty"`
	Failing []ledger.RuleResult `json:"failing,omitempty"`
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps domain errors to status codes
func writeError(w http.ResponseWriter, err error) {
	setCORSHeaders(w)

	var recErr *ReconciliationError
	var valErrs validator.ValidationErrors
	switch {
	case errors.As(err, &recErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ErrNotReconciled.Error(), Failing: recErr.Failing})
	case errors.As(err, &valErrs):
		details := make([]string, 0, len(valErrs))
		for _, fe := range valErrs {
			details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: details})
	case errors.Is(err, ledger.ErrInvalidField),
		errors.Is(err, ledger.ErrInvalidValue),
		errors.Is(err, ledger.ErrInvalidIndex):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrReadOnly), errors.Is(err, ErrRecordsBlocked):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrNoReport), errors.Is(err, ErrNoDocument):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// decode reads a JSON body into v and validates it
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidValue, err)
	}
	return s.validate.Struct(v)
}

func (s *Server) writeView(w http.ResponseWriter, status int) {
	writeJSON(w, status, s.store.View())
}

// handleGetSession returns the live session with totals and reconciliation
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, http.StatusOK)
}

func (s *Server) handleUpdateEntries(w http.ResponseWriter, r *http.Request) {
	s.handleFieldUpdate(w, r, s.store.UpdateEntryField)
}

func (s *Server) handleUpdateExits(w http.ResponseWriter, r *http.Request) {
	s.handleFieldUpdate(w, r, s.store.UpdateExitField)
}

func (s *Server) handleFieldUpdate(w http.ResponseWriter, r *http.Request, update func(string, any) error) {
	var req fieldUpdateRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	value, err := ledger.DecodeValue(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := update(req.Field, value); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK)
}

// handleAddChecks expands a sight or predated check series into the session
func (s *Server) handleAddChecks(w http.ResponseWriter, r *http.Request) {
	var req checkSeriesRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.TotalAmount.IsPositive() {
		writeError(w, fmt.Errorf("%w: total_amount must be positive", ledger.ErrInvalidValue))
		return
	}

	checks, err := s.store.AddCheckInstallmentSeries(req.series())
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("Checks added", "client", req.ClientName, "count", len(checks))
	writeJSON(w, http.StatusCreated, checks)
}

// handleScanCheck reads a check photo and answers a prefilled series. The
// session is not touched until the series is posted.
func (s *Server) handleScanCheck(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		setCORSHeaders(w)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "check scanning is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScanSize)
	if err := r.ParseMultipartForm(maxScanSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File is too large or the form is malformed. Maximum size is 20MB."})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file was selected. Please choose a photo of the check."})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, err)
		return
	}

	contentType := scanning.NormalizeContentType(header.Header.Get("Content-Type"), header.Filename)
	check, err := s.scanner.ScanCheck(data, contentType)
	if err != nil {
		slog.Error("Error scanning check", "filename", header.Filename, "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, scanResponse{Check: check, Series: seriesFromScan(check)})
}

func seriesFromScan(c *scanning.CheckData) ledger.CheckSeries {
	cs := ledger.CheckSeries{
		Kind:        ledger.CheckSight,
		Bank:        c.Bank,
		Branch:      c.Branch,
		Number:      c.Number,
		ClientName:  c.ClientName,
		TotalAmount: c.Amount,
	}
	if d, err := time.Parse("2006-01-02", c.DueDate); err == nil {
		cs.Kind = ledger.CheckPredated
		cs.InstallmentCount = 1
		cs.FirstDueDate = &d
	}
	return cs
}

func (s *Server) handleAddListItem(w http.ResponseWriter, r *http.Request) {
	var item json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ledger.ErrInvalidValue, err))
		return
	}

	if err := s.store.AddListItem(r.PathValue("list"), item); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, http.StatusCreated)
}

func (s *Server) handleRemoveListItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", ledger.ErrInvalidIndex, r.PathValue("index")))
		return
	}

	if err := s.store.RemoveListItem(r.PathValue("list"), index); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK)
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Save(); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, http.StatusOK)
}

func (s *Server) handleListCancellations(w http.ResponseWriter, r *http.Request) {
	cancellations := s.store.Cancellations()
	if cancellations == nil {
		cancellations = []ledger.Cancellation{}
	}
	writeJSON(w, http.StatusOK, cancellations)
}

func (s *Server) handleAddCancellation(w http.ResponseWriter, r *http.Request) {
	var req cancellationRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := ledger.Cancellation{
		OrderNumber:      req.OrderNumber,
		NewOrderNumber:   req.NewOrderNumber,
		Seller:           req.Seller,
		Reason:           req.Reason,
		ManagerSignature: req.ManagerSignature,
		Amount:           req.Amount,
	}
	if req.CancelTime != nil {
		c.CancelTime = *req.CancelTime
	}

	saved, err := s.store.AddCancellation(c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetCloseOut(w http.ResponseWriter, r *http.Request) {
	status := closeOutStatus{State: s.closeOut.State()}
	if report, err := s.closeOut.Report(); err == nil {
		status.Report = report
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGenerateCloseOut(w http.ResponseWriter, r *http.Request) {
	report, err := s.closeOut.Generate()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, closeOutStatus{State: s.closeOut.State(), Report: report})
}

func (s *Server) handlePrintCloseOut(w http.ResponseWriter, r *http.Request) {
	if err := s.closeOut.Print(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeOutStatus{State: s.closeOut.State()})
}

func (s *Server) handleConfirmCloseOut(w http.ResponseWriter, r *http.Request) {
	report, err := s.closeOut.Confirm()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeOutStatus{State: s.closeOut.State(), Report: report})
}

func (s *Server) handleDeclineCloseOut(w http.ResponseWriter, r *http.Request) {
	if err := s.closeOut.Decline(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeOutStatus{State: s.closeOut.State()})
}

// handleGetCloseOutReport downloads the pending report as Markdown, or as
// JSON with ?format=json
func (s *Server) handleGetCloseOutReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.closeOut.Report()
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, report)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	if _, err := w.Write([]byte(report.Markdown)); err != nil {
		slog.Error("Error writing report", "report_id", report.ID, "error", err)
	}
}

func (s *Server) handleListCloseOuts(w http.ResponseWriter, r *http.Request) {
	reports, err := s.closeOut.History()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetArchivedCloseOut(w http.ResponseWriter, r *http.Request) {
	report, err := s.closeOut.Archived(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetArchivedCloseOutPDF(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.closeOut.ArchivedPDF(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write(data); err != nil {
		slog.Error("Error writing report PDF", "file", name, "error", err)
	}
}
