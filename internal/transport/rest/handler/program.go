package handler

import (
	"net/http"
	"strconv"

	"carepath/internal/apperr"
	"carepath/internal/compose"
	"carepath/internal/model"
	"carepath/internal/payload"
	"carepath/internal/service"
	"carepath/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// ProgramHandler handles participant program endpoints for operators and
// for participants themselves
type ProgramHandler struct {
	programSvc *service.ProgramService
	contentSvc *service.ContentService
}

// NewProgramHandler creates a new program handler
func NewProgramHandler(programSvc *service.ProgramService, contentSvc *service.ContentService) *ProgramHandler {
	return &ProgramHandler{
		programSvc: programSvc,
		contentSvc: contentSvc,
	}
}

// EnrollRequest is the request body for enrolling a participant
type EnrollRequest struct {
	ParticipantID string               `json:"participantId,omitempty"`
	Language      string               `json:"language,omitempty"`
	WaitOverrides *model.WaitOverrides `json:"waitOverrides,omitempty"`
}

// AssessmentRequest is the request body for the branching assessment
type AssessmentRequest struct {
	Responses map[string]int `json:"responses"`
}

// TaskResponseRequest is the request body for answering a task
type TaskResponseRequest struct {
	Response model.ResponseData `json:"response"`
}

// Enroll handles POST /v1/programs
func (h *ProgramHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decodeBody(w, r, payload.Enrollment, &req) {
		return
	}

	resp, err := h.programSvc.Enroll(r.Context(), req.ParticipantID, req.Language, req.WaitOverrides)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/programs/{participantId}
func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.status(w, r, mux.Vars(r)["participantId"])
}

// Escalated handles GET /v1/programs/escalated
func (h *ProgramHandler) Escalated(w http.ResponseWriter, r *http.Request) {
	programs, err := h.programSvc.Escalated(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// ManualUnlock handles POST /v1/programs/{participantId}/days/{day}/unlock
func (h *ProgramHandler) ManualUnlock(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	program, err := h.programSvc.ManualUnlock(r.Context(), mux.Vars(r)["participantId"], day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// SetWaitOverrides handles PUT /v1/programs/{participantId}/wait-overrides
func (h *ProgramHandler) SetWaitOverrides(w http.ResponseWriter, r *http.Request) {
	var overrides model.WaitOverrides
	if !decodeBody(w, r, payload.WaitOverrides, &overrides) {
		return
	}
	program, err := h.programSvc.SetWaitOverrides(r.Context(), mux.Vars(r)["participantId"], &overrides)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// Sweep handles POST /v1/sweep?limit=n
func (h *ProgramHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
			return
		}
		limit = n
	}
	report, err := h.programSvc.SweepDue(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MyProgram handles GET /v1/me/program
func (h *ProgramHandler) MyProgram(w http.ResponseWriter, r *http.Request) {
	h.status(w, r, middleware.GetParticipantID(r.Context()))
}

// SubmitAssessment handles POST /v1/me/assessment
func (h *ProgramHandler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if !decodeBody(w, r, payload.Assessment, &req) {
		return
	}
	program, err := h.programSvc.SubmitAssessment(r.Context(), middleware.GetParticipantID(r.Context()), req.Responses)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// RecordResponse handles PUT /v1/me/days/{day}/tasks/{taskId}/response
func (h *ProgramHandler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	var req TaskResponseRequest
	if !decodeBody(w, r, payload.TaskResponse, &req) {
		return
	}

	participantID := middleware.GetParticipantID(r.Context())
	program, err := h.programSvc.RecordResponse(r.Context(), participantID, day, mux.Vars(r)["taskId"], req.Response)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// CompleteDay handles POST /v1/me/days/{day}/complete
func (h *ProgramHandler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	program, err := h.programSvc.CompleteDay(r.Context(), middleware.GetParticipantID(r.Context()), day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// DayContent handles GET /v1/me/days/{day}/content in the participant's language
func (h *ProgramHandler) DayContent(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	program, err := h.programSvc.Status(r.Context(), middleware.GetParticipantID(r.Context()))
	if err != nil {
		writeAppError(w, err)
		return
	}
	mod, found := program.Module(day)
	if !found {
		writeError(w, http.StatusNotFound, "day not found")
		return
	}
	if !mod.Unlocked {
		writeAppError(w, apperr.DayLocked(day))
		return
	}

	composed, err := h.contentSvc.Composed(r.Context(), day, program.Language)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"module":  mod,
		"content": compose.ForModule(composed, mod),
	})
}

func (h *ProgramHandler) status(w http.ResponseWriter, r *http.Request, participantID string) {
	program, err := h.programSvc.Status(r.Context(), participantID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}
