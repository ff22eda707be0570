package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

const (
	hostHeader   = "X-Host-Id"
	maxBodyBytes = 64 << 10
)

// API exposes the session use cases as JSON over HTTP.
type API struct {
	service *app.SessionService
	editor  *app.QuizEditor
}

func NewAPI(service *app.SessionService, editor *app.QuizEditor) *API {
	return &API{service: service, editor: editor}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /v1/quizzes/{quizId}", a.saveQuiz)
	mux.HandleFunc("POST /v1/quizzes/{quizId}/sessions", a.createSession)
	mux.HandleFunc("GET /v1/quizzes/{quizId}/sessions", a.listSessions)
	mux.HandleFunc("PUT /v1/sessions/{sessionId}/state", a.updateState)
	mux.HandleFunc("GET /v1/sessions/{sessionId}", a.sessionStatus)
	mux.HandleFunc("GET /v1/sessions/{sessionId}/results", a.sessionResults)
	mux.HandleFunc("POST /v1/players/join", a.join)
	mux.HandleFunc("GET /v1/players/{playerId}", a.playerStatus)
	mux.HandleFunc("GET /v1/players/{playerId}/questions/{position}", a.playerQuestion)
	mux.HandleFunc("PUT /v1/players/{playerId}/questions/{position}/answers", a.submitAnswer)
	mux.HandleFunc("GET /v1/players/{playerId}/questions/{position}/results", a.questionResults)
	mux.HandleFunc("GET /v1/players/{playerId}/results", a.playerResults)
	mux.HandleFunc("GET /v1/players/{playerId}/chat", a.chatMessages)
	mux.HandleFunc("POST /v1/players/{playerId}/chat", a.sendChat)
}

type createSessionRequest struct {
	AutoStartNum int `json:"autoStartNum"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type updateStateRequest struct {
	Action string `json:"action"`
}

type joinRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
}

type answerRequest struct {
	AnswerIDs []int `json:"answerIds"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

func (a *API) saveQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if !decode(w, r, &quiz) {
		return
	}
	quiz.ID = r.PathValue("quizId")
	if err := a.editor.SaveQuiz(r.Context(), r.Header.Get(hostHeader), quiz); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := a.service.CreateSession(r.Context(), r.PathValue("quizId"), r.Header.Get(hostHeader), req.AutoStartNum)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (a *API) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := a.service.ListSessions(r.Context(), r.PathValue("quizId"), r.Header.Get(hostHeader))
	respond(w, list, err)
}

func (a *API) updateState(w http.ResponseWriter, r *http.Request) {
	var req updateStateRequest
	if !decode(w, r, &req) {
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	err = a.service.UpdateSessionState(r.Context(), r.PathValue("sessionId"), r.Header.Get(hostHeader), action)
	respond(w, struct{}{}, err)
}

func (a *API) sessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.service.GetSessionStatus(r.Context(), r.PathValue("sessionId"))
	respond(w, status, err)
}

func (a *API) sessionResults(w http.ResponseWriter, r *http.Request) {
	results, err := a.service.GetFinalResults(r.Context(), r.PathValue("sessionId"))
	respond(w, results, err)
}

func (a *API) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}
	playerID, err := a.service.PlayerJoin(r.Context(), req.SessionID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{PlayerID: playerID})
}

func (a *API) playerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.service.PlayerStatus(r.Context(), r.PathValue("playerId"))
	respond(w, status, err)
}

func (a *API) playerQuestion(w http.ResponseWriter, r *http.Request) {
	position, ok := positionParam(w, r)
	if !ok {
		return
	}
	question, err := a.service.PlayerQuestion(r.Context(), r.PathValue("playerId"), position)
	respond(w, question, err)
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	position, ok := positionParam(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	err := a.service.PlayerSubmitAnswer(r.Context(), r.PathValue("playerId"), position, req.AnswerIDs)
	respond(w, struct{}{}, err)
}

func (a *API) questionResults(w http.ResponseWriter, r *http.Request) {
	position, ok := positionParam(w, r)
	if !ok {
		return
	}
	result, err := a.service.PlayerQuestionResults(r.Context(), r.PathValue("playerId"), position)
	respond(w, result, err)
}

func (a *API) playerResults(w http.ResponseWriter, r *http.Request) {
	results, err := a.service.PlayerFinalResults(r.Context(), r.PathValue("playerId"))
	respond(w, results, err)
}

func (a *API) chatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.service.ChatMessages(r.Context(), r.PathValue("playerId"))
	respond(w, chatResponse{Messages: msgs}, err)
}

func (a *API) sendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	err := a.service.SendChat(r.Context(), r.PathValue("playerId"), req.Message)
	respond(w, struct{}{}, err)
}

func positionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		writeError(w, domain.ErrQuestionPosition)
		return 0, false
	}
	return position, true
}

// decode reads a JSON body into dst; an empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState, domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
