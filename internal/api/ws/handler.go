// Package ws pushes store change notifications to websocket clients.
//
// The payload is intentionally thin: collection, operation, and document id.
// Clients re-fetch the affected collection; the socket only tells them when.
// That keeps the stream loss-tolerant, because the broker may shed
// intermediate changes under backpressure.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"

	"github.com/ashfall-games/fatetable/internal/watch"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

type changeMessage struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"id"`
	At         int64  `json:"at"`
}

type clientMessage struct {
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

// errorMessage reports a client fault. The fields mirror the gRPC status form
// of the domain error, so websocket and RPC clients see the same code, reason,
// and metadata.
type errorMessage struct {
	Type     string            `json:"type"`
	Code     string            `json:"code"`
	GRPCCode string            `json:"grpcCode"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Handler upgrades HTTP requests into change-stream subscriptions.
type Handler struct {
	broker   *watch.Broker
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler over the change broker.
func NewHandler(broker *watch.Broker, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		broker: broker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and streams changes until the client leaves.
// The optional "collections" query parameter narrows the stream, e.g.
// ?collections=characters,scenes.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	collections := parseCollections(r.URL.Query().Get("collections"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := h.broker.Subscribe(collections...)

	// Changes stream from this goroutine; the read loop below also writes
	// error envelopes, so the connection carries a write lock.
	var writeMu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for change := range sub.C {
			msg := changeMessage{
				Type:       "change",
				Collection: string(change.Collection),
				Op:         string(change.Op),
				ID:         change.ID,
				At:         change.At.UnixMilli(),
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Printf("ws marshal change: %v", err)
				continue
			}
			writeMu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, data)
			writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		}
		// Broker closed; tell the client the stream is over.
		closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed")
		writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage, closing)
		writeMu.Unlock()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("ws discarding malformed message: %v", err)
			h.writeError(conn, &writeMu,
				apperrors.Wrap(apperrors.CodeClientMessageMalformed, "malformed client message", err))
			continue
		}
		switch msg.Type {
		case "ping":
			// Acknowledged on the next change; clients use pings only to keep
			// intermediaries from idling the connection out.
		default:
			h.logger.Printf("ws unknown message type %q", msg.Type)
			h.writeError(conn, &writeMu,
				apperrors.WithMetadata(apperrors.CodeClientMessageUnknownType, "unknown message type",
					map[string]string{"type": msg.Type}))
		}
	}

	sub.Unsubscribe()
	<-done
}

// writeError sends a client fault back over the socket. The envelope goes
// through the gRPC status conversion so the reason and metadata arrive exactly
// as an RPC client would see them in the status details.
func (h *Handler) writeError(conn *websocket.Conn, writeMu *sync.Mutex, e *apperrors.Error) {
	st := status.Convert(e.ToGRPCStatus())
	msg := errorMessage{
		Type:     "error",
		Code:     string(e.Code),
		GRPCCode: st.Code().String(),
		Message:  st.Message(),
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			msg.Code = info.Reason
			msg.Metadata = info.Metadata
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("ws marshal error envelope: %v", err)
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Printf("ws write error envelope: %v", err)
	}
}

// parseCollections maps the query filter onto known collections; unknown names
// are dropped rather than rejected.
func parseCollections(raw string) []watch.Collection {
	if raw == "" {
		return nil
	}
	known := map[watch.Collection]bool{
		watch.CollectionCharacters: true,
		watch.CollectionAspects:    true,
		watch.CollectionScenes:     true,
		watch.CollectionNPCs:       true,
		watch.CollectionSessions:   true,
		watch.CollectionLog:        true,
	}
	var out []watch.Collection
	for _, part := range strings.Split(raw, ",") {
		c := watch.Collection(strings.TrimSpace(part))
		if known[c] {
			out = append(out, c)
		}
	}
	return out
}
