package http

import (
	"encoding/json"
	"net/http"

	"daily-quiz-service/internal/app"
)

// QuizHandler serves the daily quiz endpoints. Every route requires auth.
type QuizHandler struct {
	quiz    *app.QuizService
	rewards *app.RewardService
}

func NewQuizHandler(quiz *app.QuizService, rewards *app.RewardService) *QuizHandler {
	return &QuizHandler{quiz: quiz, rewards: rewards}
}

type answerRequest struct {
	QuestionID int64 `json:"questionId"`
	OptionID   int64 `json:"optionId"`
}

// Questions handles GET /quiz/questions.
func (h *QuizHandler) Questions(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := h.quiz.QuizData(r.Context(), user.ID, h.quiz.QuizID())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Answer handles POST /quiz/answer.
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.quiz.SubmitAnswer(r.Context(), user, req.QuestionID, req.OptionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Rewards handles GET /quiz/rewards.
func (h *QuizHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	history, err := h.rewards.History(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
