package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ai_content_workflow/export"
	"ai_content_workflow/generator"
	"ai_content_workflow/history"
)

// --- Handlers ---

type sessionCreateReq struct {
	Topic       string `json:"topic"`
	ContentType string `json:"content_type"`
	Tone        string `json:"tone"`
	Length      string `json:"length"`
}

type stageView struct {
	Generated string `json:"generated"`
	Edited    string `json:"edited"`
	Stale     bool   `json:"stale"`
	CanRun    bool   `json:"can_run"`
}

type sessionResp struct {
	SessionID  string                        `json:"session_id"`
	Parameters generator.Parameters          `json:"parameters"`
	Stages     map[generator.Stage]stageView `json:"stages"`
	Notes      string                        `json:"notes"`
	Complete   bool                          `json:"complete"`
	History    []generator.Turn              `json:"history"`
}

type editReq struct {
	Text *string `json:"text"`
}

type saveReq struct {
	ClarityScore    int `json:"clarity_score"`
	EngagementScore int `json:"engagement_score"`
}

type saveResp struct {
	ID int64 `json:"id"`
}

type stageResp struct {
	Stage  generator.Stage `json:"stage"`
	Output string          `json:"output"`
	Notes  string          `json:"notes,omitempty"`
}

func toResp(sess *generator.Session) sessionResp {
	st := sess.State
	stages := make(map[generator.Stage]stageView, len(generator.Stages))
	for _, stage := range generator.Stages {
		stages[stage] = stageView{
			Generated: st.Generated(stage),
			Edited:    st.Current(stage),
			Stale:     st.Stale(stage),
			CanRun:    st.CanRun(stage),
		}
	}
	return sessionResp{
		SessionID:  sess.ID,
		Parameters: st.Params,
		Stages:     stages,
		Notes:      st.Notes,
		Complete:   st.Complete(),
		History:    append([]generator.Turn(nil), sess.History...),
	}
}

func (req sessionCreateReq) params() generator.Parameters {
	return generator.Parameters{
		Topic:       strings.TrimSpace(req.Topic),
		ContentType: req.ContentType,
		Tone:        req.Tone,
		Length:      req.Length,
	}
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	params := req.params()
	id := newSessionID()
	sess := generator.NewSession(id, params, s.exec)
	n := s.store.set(id, sess)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(n))
	}
	s.logger.Info("session created", zap.String("session_id", id), zap.String("topic", params.Topic))
	writeJSON(w, http.StatusCreated, toResp(sess))
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *generator.Session) {
		writeJSON(w, http.StatusOK, toResp(sess))
	})
}

// handleSessionRestart discards every stage and the history and starts over
// with the new parameters under the same session id.
func (s *Server) handleSessionRestart(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	s.withSession(w, r, func(sess *generator.Session) {
		sess.Restart(req.params())
		s.logger.Info("session restarted", zap.String("session_id", sess.ID), zap.String("topic", sess.State.Params.Topic))
		writeJSON(w, http.StatusOK, toResp(sess))
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	n, ok := s.store.remove(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "session not found", nil)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(n))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStageRun(w http.ResponseWriter, r *http.Request) {
	stage, ok := parseStage(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(sess *generator.Session) {
		ctx, cancel := s.stageContext(r)
		defer cancel()
		out, err := sess.Run(ctx, stage)
		if err != nil {
			s.logger.Warn("stage failed", zap.String("session_id", sess.ID), zap.Stringer("stage", stage), zap.Error(err))
			writeStageError(w, stage, err)
			return
		}
		resp := stageResp{Stage: stage, Output: out}
		if stage == generator.StageRefine {
			resp.Notes = sess.State.Notes
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleStageEdit(w http.ResponseWriter, r *http.Request) {
	stage, ok := parseStage(w, r)
	if !ok {
		return
	}
	var req editReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), &stage)
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "text is required", &stage)
		return
	}
	s.withSession(w, r, func(sess *generator.Session) {
		if err := sess.Edit(stage, *req.Text); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), &stage)
			return
		}
		writeJSON(w, http.StatusOK, toResp(sess))
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	var snapshot history.SavedRun
	found := false
	s.withSession(w, r, func(sess *generator.Session) {
		snapshot = history.NewSnapshot(sess.State, req.ClarityScore, req.EngagementScore)
		found = true
	})
	if !found {
		return
	}

	id, err := s.history.Save(r.Context(), snapshot)
	if s.metrics != nil {
		s.metrics.ObserveSave(err)
	}
	if err != nil {
		s.logger.Error("save failed", zap.Error(err))
		writeSaveError(w, err)
		return
	}
	s.logger.Info("run saved", zap.Int64("id", id))
	writeJSON(w, http.StatusCreated, saveResp{ID: id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}
	s.withSession(w, r, func(sess *generator.Session) {
		doc, err := export.Build(sess.State, format)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), nil)
			return
		}
		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
		_, _ = w.Write(doc.Body)
	})
}

func (s *Server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.history.ListAll(r.Context())
	if err != nil {
		writeSaveError(w, err)
		return
	}
	if runs == nil {
		runs = []history.SavedRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleTones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.exec.Tones())
}

func parseStage(w http.ResponseWriter, r *http.Request) (generator.Stage, bool) {
	stage, err := generator.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return 0, false
	}
	return stage, true
}

// --- Errors ---

const (
	codeBadRequest   = "BAD_REQUEST"
	codeNotFound     = "NOT_FOUND"
	codePrerequisite = "PREREQUISITE_MISSING"
	codeTemplate     = "TEMPLATE_VARIABLE_MISSING"
	codeGeneration   = "GENERATION_ERROR"
	codeTimeout      = "GENERATION_TIMEOUT"
	codeStorage      = "STORAGE_ERROR"
	codeInvalidScore = "INVALID_SCORE"
	codeInternal     = "INTERNAL_ERROR"
)

type errorResp struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Stage   *generator.Stage `json:"stage,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, stage *generator.Stage) {
	writeJSON(w, status, errorResp{Code: code, Message: msg, Stage: stage})
}

func writeStageError(w http.ResponseWriter, stage generator.Stage, err error) {
	switch {
	case errors.Is(err, generator.ErrPrerequisiteMissing):
		writeError(w, http.StatusConflict, codePrerequisite, err.Error(), &stage)
	case errors.Is(err, generator.ErrTemplateVariableMissing):
		writeError(w, http.StatusInternalServerError, codeTemplate, err.Error(), &stage)
	case errors.Is(err, generator.ErrGeneration) && errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, err.Error(), &stage)
	case errors.Is(err, generator.ErrGeneration):
		writeError(w, http.StatusBadGateway, codeGeneration, err.Error(), &stage)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), &stage)
	}
}

func writeSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, codeInvalidScore, err.Error(), nil)
	case errors.Is(err, history.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, codeStorage, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), nil)
	}
}
