package http

import (
	"log/slog"
	"net/http"
	"sync"

	"daily-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// RewardNotifier streams reward status changes to connected clients over
// websockets, so the frontend learns a reward was sent without polling.
// It implements app.RewardNotifier.
type RewardNotifier struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Reward]struct{}
}

func NewRewardNotifier(logger *slog.Logger) *RewardNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RewardNotifier{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:      logger,
		subscribers: make(map[int64]map[chan domain.Reward]struct{}),
	}
}

// NotifyRewardSent fans the confirmed reward out to the user's connections.
// Slow readers lose stale updates rather than blocking the caller.
func (n *RewardNotifier) NotifyRewardSent(userID int64, reward domain.Reward) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subscribers[userID] {
		select {
		case ch <- reward:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- reward
		}
	}
}

func (n *RewardNotifier) subscribe(userID int64) (chan domain.Reward, func()) {
	ch := make(chan domain.Reward, 8)

	n.mu.Lock()
	if n.subscribers[userID] == nil {
		n.subscribers[userID] = make(map[chan domain.Reward]struct{})
	}
	n.subscribers[userID][ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if subs, ok := n.subscribers[userID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(n.subscribers, userID)
			}
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

type rewardSentMessage struct {
	Type   string        `json:"type"`
	Reward domain.Reward `json:"reward"`
}

// ServeWS upgrades GET /ws/rewards for the authenticated user and streams
// reward-sent notifications until the client disconnects.
func (n *RewardNotifier) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.logger.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel := n.subscribe(user.ID)
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case reward, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(rewardSentMessage{Type: "rewardSent", Reward: reward}); err != nil {
				n.logger.Error("ws write failed", "err", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
