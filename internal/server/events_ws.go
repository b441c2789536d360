/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/grimnir_signage/internal/events"
)

// wsEvent is the frame pushed to rendering-layer subscribers.
type wsEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   events.Payload `json:"payload"`
}

// feedEvents are the bus topics forwarded over the websocket.
var feedEvents = []events.EventType{
	events.EventItemStart,
	events.EventItemEnd,
	events.EventQueueResolved,
	events.EventQueueFallback,
	events.EventPreloadResult,
	events.EventPlayerError,
}

// handleEventsWS streams player events to the rendering layer. The renderer
// is the sole consumer responsible for actually displaying media; it reacts
// to item-start frames and may POST /api/v1/skip in return.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // renderer runs on the same device
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	ctx := r.Context()
	merged := make(chan wsEvent, 32)

	for _, eventType := range feedEvents {
		sub := s.bus.Subscribe(eventType)
		defer s.bus.Unsubscribe(eventType, sub)

		go func(eventType events.EventType, sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- wsEvent{Type: string(eventType), Timestamp: time.Now(), Payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}(eventType, sub)
	}

	s.logger.Debug().Str("remote", r.RemoteAddr).Msg("event feed connected")
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-merged:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Msg("event feed write failed, dropping client")
				return
			}
		}
	}
}
