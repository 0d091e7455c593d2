package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/attendance"
)

type sessionView struct {
	*attendance.Session
	Members    []attendance.MemberState `json:"members"`
	Candidates interface{}              `json:"candidates"`
}

func (h *JournalHandler) view(r *http.Request, sess *attendance.Session) (*sessionView, error) {
	roster, err := h.service.Store.ListStudents(r.Context(), sess.ClassID)
	if err != nil {
		return nil, err
	}
	return &sessionView{
		Session:    sess,
		Members:    sess.Members(roster),
		Candidates: attendance.EligibleCandidates(roster, sess.ActiveScope),
	}, nil
}

func (h *JournalHandler) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *attendance.Session) {
	view, err := h.view(r, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}

func (h *JournalHandler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	sess, err := h.service.OpenSession(r.Context(), r.PathValue("class"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondSession(w, r, http.StatusCreated, sess)
}

func (h *JournalHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	sess, err := h.service.Sessions.Load(r.Context(), r.PathValue("class"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, sess)
}

func (h *JournalHandler) HandleDiscardSession(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	if err := h.service.DiscardSession(r.Context(), r.PathValue("class"), date); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSwitchScope answers 409 with the prompt when the change would discard
// unsaved data and the request did not confirm it. The session stays as it was.
func (h *JournalHandler) HandleSwitchScope(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	var req struct {
		Scope   string `json:"scope"`
		Confirm bool   `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Scope == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var out attendance.Outcome
	confirm := attendance.ConfirmFunc(func(message string) bool {
		logger.Debug.Printf("Confirmation %q answered %v", message, req.Confirm)
		return req.Confirm
	})
	sess, err := h.service.WithSession(r.Context(), r.PathValue("class"), date, func(sess *attendance.Session) error {
		var err error
		out, err = h.service.Attendance.SwitchScope(r.Context(), sess, req.Scope, confirm)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if out.Action == attendance.ActionConfirmReset && !out.Applied {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"outcome": out,
			"error":   "confirmation required",
		})
		return
	}

	view, err := h.view(r, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": out,
		"session": view,
	})
}

func (h *JournalHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*attendance.Session) error) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	sess, err := h.service.WithSession(r.Context(), r.PathValue("class"), date, fn)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, sess)
}

func (h *JournalHandler) HandleTogglePresence(w http.ResponseWriter, r *http.Request) {
	student := r.PathValue("student")
	h.mutate(w, r, func(sess *attendance.Session) error {
		return h.service.Attendance.TogglePresence(r.Context(), sess, student)
	})
}

func (h *JournalHandler) HandleAdmit(w http.ResponseWriter, r *http.Request) {
	student := r.PathValue("student")
	h.mutate(w, r, func(sess *attendance.Session) error {
		return h.service.Attendance.AdmitTemporaryStudent(r.Context(), sess, student)
	})
}

func (h *JournalHandler) HandleToggleTemporary(w http.ResponseWriter, r *http.Request) {
	student := r.PathValue("student")
	h.mutate(w, r, func(sess *attendance.Session) error {
		return h.service.Attendance.ToggleTemporaryPresence(sess, student)
	})
}

func (h *JournalHandler) HandleRemoveTemporary(w http.ResponseWriter, r *http.Request) {
	student := r.PathValue("student")
	h.mutate(w, r, func(sess *attendance.Session) error {
		return h.service.Attendance.RemoveTemporaryStudent(sess, student)
	})
}

func (h *JournalHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	sess, err := h.service.Sessions.Load(r.Context(), r.PathValue("class"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	candidates, err := h.service.Attendance.Candidates(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
	})
}

func (h *JournalHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	date, ok := pathDate(w, r)
	if !ok {
		return
	}
	record, err := h.service.CommitSession(r.Context(), r.PathValue("class"), date)
	if errors.Is(err, attendance.ErrMissingEntry) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":  "create the journal entry before saving attendance",
			"record": record,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
