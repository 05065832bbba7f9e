package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/statwatch-io/statwatch/internal/domain"
)

// clientBufferSize bounds how far one slow client may fall behind before
// events are dropped for it.
const clientBufferSize = 16

const keepAliveInterval = 30 * time.Second

// SSEBroker fans freshly archived records out to connected event-stream
// clients. It implements domain.Notifier, so the archiver treats it as one
// more delivery sink.
type SSEBroker struct {
	logger  *slog.Logger
	clients map[chan []byte]struct{}
	mu      sync.RWMutex
}

// NewSSEBroker creates a new SSEBroker.
func NewSSEBroker(logger *slog.Logger) *SSEBroker {
	return &SSEBroker{
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}
}

// RecordArchived broadcasts the record to every connected client. The SSE
// event name is the variant kind, so a browser can subscribe per kind.
func (b *SSEBroker) RecordArchived(ctx context.Context, rec *domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", rec.Kind, data)
	b.broadcast(buf.Bytes())
	return nil
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	messageChan := make(chan []byte, clientBufferSize)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-messageChan:
			if !ok {
				return // Channel was closed
			}
			w.Write(msg)
			flusher.Flush()
		}
	}
}

func (b *SSEBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected", "clients", len(b.clients))
}

func (b *SSEBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("SSE client disconnected", "clients", len(b.clients))
	}
}

func (b *SSEBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Client channel is full, maybe slow client.
			// We don't block the broadcast for one slow client.
		}
	}
}
