package handler

import (
	"net/http"

	"carepath/internal/model"
	"carepath/internal/payload"
	"carepath/internal/service"

	"github.com/gorilla/mux"
)

// ContentHandler handles day structure and translation authoring
type ContentHandler struct {
	contentSvc *service.ContentService
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentSvc *service.ContentService) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc}
}

// ReorderRequest is the request body for reordering a level's tasks
type ReorderRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// List handles GET /v1/content/days
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	structures, err := h.contentSvc.ListStructures(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structures)
}

// Get handles GET /v1/content/days/{day}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	structure, err := h.contentSvc.Structure(r.Context(), day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// PutStructure handles PUT /v1/content/days/{day}/structure
func (h *ContentHandler) PutStructure(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	var edit model.StructureEdit
	if !decodeBody(w, r, payload.StructureEdit, &edit) {
		return
	}
	edit.DayNumber = day

	structure, err := h.contentSvc.ApplyStructureEdit(r.Context(), edit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// UpsertTask handles POST /v1/content/days/{day}/tasks
func (h *ContentHandler) UpsertTask(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	var up model.TaskUpsert
	if !decodeBody(w, r, payload.TaskUpsert, &up) {
		return
	}
	up.DayNumber = day

	structure, err := h.contentSvc.UpsertTask(r.Context(), up)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// RemoveTask handles DELETE /v1/content/days/{day}/tasks/{taskId}
func (h *ContentHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	structure, err := h.contentSvc.RemoveTask(r.Context(), day, mux.Vars(r)["taskId"])
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// ReorderTasks handles PUT /v1/content/days/{day}/levels/{levelKey}/order
func (h *ContentHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	var req ReorderRequest
	if !decodeBody(w, r, payload.Reorder, &req) {
		return
	}

	structure, err := h.contentSvc.ReorderTasks(r.Context(), day, mux.Vars(r)["levelKey"], req.TaskIDs)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// PutTranslation handles PUT /v1/content/days/{day}/translations/{language}
func (h *ContentHandler) PutTranslation(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	var edit model.TranslationEdit
	if !decodeBody(w, r, payload.TranslationEdit, &edit) {
		return
	}
	edit.DayNumber = day
	edit.Language = mux.Vars(r)["language"]

	translation, err := h.contentSvc.ApplyTranslationEdit(r.Context(), edit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translation)
}

// Composed handles GET /v1/content/days/{day}/composed?language=xx
func (h *ContentHandler) Composed(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	composed, err := h.contentSvc.Composed(r.Context(), day, r.URL.Query().Get("language"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, composed)
}

// Legacy handles GET /v1/content/days/{day}/legacy
func (h *ContentHandler) Legacy(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	rec, err := h.contentSvc.LegacyConfig(r.Context(), day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SyncLegacy handles POST /v1/content/days/{day}/legacy/sync
func (h *ContentHandler) SyncLegacy(w http.ResponseWriter, r *http.Request) {
	day, ok := dayVar(w, r)
	if !ok {
		return
	}
	rec, err := h.contentSvc.SyncLegacy(r.Context(), day)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
