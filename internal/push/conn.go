package push

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait is time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// pongWait is time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// pingPeriod is the interval for sending pings (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum frame size accepted from the peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Attach upgrades the request to a websocket and streams the borrower's
// ledger events to it until the peer goes away or falls behind.
// Authenticating the borrower behind the request is the caller's
// responsibility.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request, borrowerID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := h.subscribe(borrowerID)
	go writeEvents(conn, sub)
	go watchPeer(h, conn, sub)
	return nil
}

// writeEvents drains the subscriber inbox into the connection, keeping
// the peer alive with pings. A closed inbox means the hub detached the
// subscriber, so the connection goes down with it.
func writeEvents(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn().
					Err(err).
					Str("borrower_id", sub.borrowerID.String()).
					Msg("Push write error")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// watchPeer consumes and discards inbound frames. Borrowers only
// listen; the read loop exists to answer pings and to notice the peer
// disconnecting, at which point the subscriber is detached.
func watchPeer(h *Hub, conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("borrower_id", sub.borrowerID.String()).
					Msg("Push connection unexpected close")
			}
			return
		}
	}
}
