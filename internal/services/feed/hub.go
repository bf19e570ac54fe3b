package feed

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/dicetray/internal/storage"
)

// DefaultReplay is how many recent rolls a new subscriber receives.
const DefaultReplay = 20

type frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type groupView struct {
	Notation  string `json:"notation"`
	Total     int    `json:"total"`
	Breakdown string `json:"breakdown"`
}

type rollView struct {
	ID         string      `json:"id"`
	Seq        uint64      `json:"seq"`
	Notation   string      `json:"notation"`
	Seed       int64       `json:"seed"`
	SeedSource string      `json:"seed_source"`
	D100Mode   int         `json:"d100_mode"`
	Total      int         `json:"total"`
	Groups     []groupView `json:"groups"`
	RolledAt   time.Time   `json:"rolled_at"`
}

type rollEnvelope struct {
	Roll rollView `json:"roll"`
}

type readyEnvelope struct {
	Replay int `json:"replay"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func toView(r storage.RollRecord) rollView {
	groups := make([]groupView, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = groupView{Notation: g.Notation, Total: g.Total, Breakdown: g.Breakdown}
	}
	return rollView{
		ID:         r.ID,
		Seq:        r.Seq,
		Notation:   r.Notation,
		Seed:       r.Seed,
		SeedSource: r.SeedSource,
		D100Mode:   r.D100Mode,
		Total:      r.Total,
		Groups:     groups,
		RolledAt:   r.RolledAt,
	}
}

// frameWriter delivers frames to one subscriber.
type frameWriter interface {
	writeFrame(f frame) error
}

// subscriberQueue is how many published frames may wait for a subscriber
// beyond its replay before it is dropped as too slow.
const subscriberQueue = 64

// subscriber is a frameWriter with its own outbound queue. Frames are
// queued under the hub lock, so a subscriber sees feed.ready and its replay
// before any frame published after it joined.
type subscriber struct {
	w     frameWriter
	queue chan frame
	done  chan struct{}
}

// Hub fans stored rolls out to subscribers and keeps a short replay buffer.
type Hub struct {
	mu          sync.Mutex
	replay      int
	recent      []frame
	subscribers map[*subscriber]struct{}
	logger      *log.Logger
}

// NewHub creates a hub replaying up to replay recent rolls to new
// subscribers; zero uses DefaultReplay.
func NewHub(replay int, logger *log.Logger) *Hub {
	if replay <= 0 {
		replay = DefaultReplay
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		replay:      replay,
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

// Publish broadcasts a stored roll without waiting on subscribers. A
// subscriber whose queue is full is dropped.
func (h *Hub) Publish(record storage.RollRecord) {
	f := frame{Type: "roll.created", Payload: mustJSON(h.logger, rollEnvelope{Roll: toView(record)})}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, f)
	if len(h.recent) > h.replay {
		h.recent = h.recent[len(h.recent)-h.replay:]
	}
	for s := range h.subscribers {
		select {
		case s.queue <- f:
		default:
			h.logger.Printf("feed: drop slow subscriber")
			h.removeLocked(s)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// join registers w with feed.ready and the replay already queued.
func (h *Hub) join(w frameWriter) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &subscriber{
		w:     w,
		queue: make(chan frame, 1+h.replay+subscriberQueue),
		done:  make(chan struct{}),
	}
	s.queue <- frame{Type: "feed.ready", Payload: mustJSON(h.logger, readyEnvelope{Replay: len(h.recent)})}
	for _, f := range h.recent {
		s.queue <- f
	}
	h.subscribers[s] = struct{}{}
	return s
}

// deliver writes queued frames to s until it leaves or a write fails.
func (h *Hub) deliver(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.done:
			return
		case f := <-s.queue:
			if err := s.w.writeFrame(f); err != nil {
				h.logger.Printf("feed: drop subscriber: %v", err)
				h.leave(s)
				return
			}
		}
	}
}

func (h *Hub) leave(s *subscriber) {
	h.mu.Lock()
	h.removeLocked(s)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(s *subscriber) {
	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.done)
}

func mustJSON(logger *log.Logger, v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Printf("feed: marshal frame payload: %v", err)
		return nil
	}
	return b
}
