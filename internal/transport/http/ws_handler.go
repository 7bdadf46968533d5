package http

import (
	"context"
	"encoding/json"
	"sync"

	"culturax-service/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const closeFrameType = "close"

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index  *int   `json:"index"`
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type closePayload struct {
	code   int
	reason string
}

// servePlayWS streams a play session over a websocket: select, next,
// previous and submit come in; state, result and error go out. The socket is
// closed once the session ends or its user signs out elsewhere.
func (h *handlers) servePlayWS(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, userID := c.Param("sid"), currentUserID(c)

	updates, cancel, err := h.Play.Subscribe(ctx, sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	signedOut := make(chan struct{})
	var signOutOnce sync.Once
	stopWatching := authState(c).OnChange(func(snap app.AuthSnapshot) {
		if snap.User == nil {
			signOutOnce.Do(func() { close(signedOut) })
		}
	})
	defer stopWatching()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections support one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.Type == closeFrameType {
				p := msg.Payload.(closePayload)
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(p.code, p.reason))
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write failed")
				_ = conn.Close()
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		case <-closeSignals:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					emit(outboundMessage[any]{Type: closeFrameType, Payload: closePayload{code: websocket.CloseNormalClosure, reason: "play session ended"}})
					return
				}
				if !emit(outboundMessage[any]{Type: "state", Payload: view}) {
					return
				}
				if view.Result != nil {
					emit(outboundMessage[any]{Type: "result", Payload: *view.Result})
				}
			case <-signedOut:
				if err := h.Play.Close(context.WithoutCancel(ctx), sessionID, userID); err != nil {
					h.log.WithError(err).Debug("close play session after sign-out")
				}
				emit(outboundMessage[any]{Type: closeFrameType, Payload: closePayload{code: websocket.ClosePolicyViolation, reason: "signed out"}})
				return
			case <-closeSignals:
				return
			}
		}
	}()

	fail := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
				continue
			}
			if payload.Index == nil {
				_, err = h.Play.SelectCurrent(ctx, sessionID, userID, payload.Option)
			} else {
				_, err = h.Play.Select(ctx, sessionID, userID, *payload.Index, payload.Option)
			}
		case "next":
			_, err = h.Play.Next(ctx, sessionID, userID)
		case "previous":
			_, err = h.Play.Previous(ctx, sessionID, userID)
		case "submit":
			var res app.PlayResult
			res, err = h.Play.Submit(ctx, sessionID, userID)
			if res.Trigger != "" {
				// the result, saved or not, arrives as a state update
				err = nil
			}
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
			continue
		}
		if err != nil {
			fail(err)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
