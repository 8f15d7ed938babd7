package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/woohoo/internal/browser"
	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

const (
	outboxSize     = 64
	writeTimeout   = 5 * time.Second
	attemptTimeout = 10 * time.Second
)

// handleScream runs one attempt over a WebSocket.
func (s *Server) handleScream(w http.ResponseWriter, r *http.Request) {
	log := observe.Logger(r.Context())

	if err := browser.CheckEnvironment(r.UserAgent()); err != nil {
		log.Info("web: rejected in-app browser", "browser", browser.Detect(r.UserAgent()))
		writeJSON(w, http.StatusForbidden, errorBody{Error: "unsupported_environment", Message: err.Error()})
		return
	}

	cfg, _ := s.snapshot()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: cfg.AllowedOrigins})
	if err != nil {
		log.Warn("web: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	src := newWSSource(conn)
	go src.readLoop(ctx)

	runner, err := challenge.NewRunner(src, nil, cfg.Challenge, s.runnerOptions()...)
	if err != nil {
		log.Error("web: build runner", "err", err)
		conn.Close(websocket.StatusInternalError, "configuration error")
		return
	}

	out := newOutbox(conn)
	go out.run(ctx)

	displayMax := runner.DisplayMax()
	res, err := runner.Run(ctx, challenge.Hooks{
		OnCountdown: func(n int) {
			out.send(countdownMessage{Type: msgCountdown, Remaining: n})
		},
		OnReading: func(rd loudness.Reading) {
			out.trySend(readingMessage{
				Type:    msgReading,
				Score:   rd.Score,
				Display: rd.Display,
				Peak:    rd.Peak,
				Percent: loudness.UIPercent(rd.Display, displayMax),
			})
		},
	})
	if dropped := src.Dropped(); dropped > 0 {
		log.Debug("web: dropped audio chunks", "session_id", res.SessionID, "count", dropped)
	}

	if err != nil {
		out.send(errorMessage{Type: msgError, Message: captureMessage(err)})
		out.finish()
		conn.Close(websocket.StatusNormalClosure, "attempt failed")
		return
	}

	s.results.Put(res)
	if cfg.SubmitAttempts {
		go s.submitAttempt(context.WithoutCancel(r.Context()), res)
	}
	out.send(resultMessage{
		Type:      msgResult,
		SessionID: res.SessionID,
		Peak:      res.Peak,
		Tier:      res.Tier,
		Label:     res.Label(),
		Rewarded:  res.Rewarded(),
	})
	out.finish()
	conn.Close(websocket.StatusNormalClosure, "attempt finished")
}

// submitAttempt records res with the reward API. Failures are logged only;
// the player can still claim the stored result.
func (s *Server) submitAttempt(ctx context.Context, res challenge.Result) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	log := observe.Logger(ctx)

	_, claimer := s.snapshot()
	out, err := claimer.SubmitAttempt(ctx, res)
	switch {
	case errors.Is(err, challenge.ErrNoSubmitter):
		log.Debug("web: attempt not recorded, no reward API", "session_id", res.SessionID)
	case err != nil:
		log.Warn("web: attempt submission failed", "session_id", res.SessionID, "err", err)
	default:
		log.Debug("web: attempt recorded", "session_id", res.SessionID, "reward", out.Reward)
	}
}

// outbox serialises writes to the socket so capture callbacks never block
// on the network.
type outbox struct {
	conn *websocket.Conn
	msgs chan any

	closeOnce sync.Once
	done      chan struct{}
}

func newOutbox(conn *websocket.Conn) *outbox {
	return &outbox{
		conn: conn,
		msgs: make(chan any, outboxSize),
		done: make(chan struct{}),
	}
}

func (o *outbox) run(ctx context.Context) {
	defer close(o.done)
	for msg := range o.msgs {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, o.conn, msg)
		cancel()
		if err != nil {
			// Keep draining so senders never block.
			for range o.msgs {
			}
			return
		}
	}
}

// send queues msg, waiting for room.
func (o *outbox) send(msg any) {
	select {
	case o.msgs <- msg:
	case <-o.done:
	}
}

// trySend queues msg unless the outbox is full.
func (o *outbox) trySend(msg any) {
	select {
	case o.msgs <- msg:
	default:
	}
}

// finish flushes queued messages and stops the writer.
func (o *outbox) finish() {
	o.closeOnce.Do(func() { close(o.msgs) })
	<-o.done
}
