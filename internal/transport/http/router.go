package http

import (
	"net/http"

	"daily-quiz-service/internal/app"
)

// NewRouter wires all routes. notifier may be nil when the websocket stream
// is not exposed.
func NewRouter(auth *app.AuthService, authHandler *AuthHandler, quizHandler *QuizHandler, notifier *RewardNotifier) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /auth/nonce", authHandler.Nonce)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	mux.HandleFunc("GET /quiz/questions", RequireAuth(auth, quizHandler.Questions))
	mux.HandleFunc("POST /quiz/answer", RequireAuth(auth, quizHandler.Answer))
	mux.HandleFunc("GET /quiz/rewards", RequireAuth(auth, quizHandler.Rewards))

	if notifier != nil {
		mux.HandleFunc("GET /ws/rewards", RequireAuth(auth, notifier.ServeWS))
	}
	return mux
}
