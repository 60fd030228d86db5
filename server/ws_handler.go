package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

// WebSocketHandler streams hub messages (share data, login results) to an
// open tab until either side closes.
func (s *Server) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.originPatterns(),
		})
		if err != nil {
			s.logger.Debug().Err(err).Msg("websocket accept failed")
			return
		}
		defer conn.CloseNow()

		msgs, unsubscribe := s.hub.Subscribe()
		defer unsubscribe()

		// Inbound frames are ignored; CloseRead surfaces the peer closing
		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "bye")
					return
				}
				writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := wsjson.Write(writeCtx, conn, msg)
				cancel()
				if err != nil {
					s.logger.Debug().Err(err).Str("type", string(msg.Type)).Msg("websocket write failed")
					return
				}
			}
		}
	}
}
