// Package server exposes HTTP handlers, including the chat WebSocket gateway,
// health checks, the clients listing, and the built-in test page.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/chat"
	"github.com/Tyrowin/gochat/internal/logger"
)

// Gateway joins WebSocket clients to the same chat as TCP clients.
type Gateway struct {
	ctx      context.Context
	registry *chat.Registry
	handler  *chat.Handler
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// ClientInfo is one entry of the /clients listing.
type ClientInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Addr      string `json:"addr"`
	Transport string `json:"transport"`
}

// NewGateway returns a Gateway whose sessions live until ctx is cancelled,
// independent of the upgrade request.
func NewGateway(ctx context.Context, reg *chat.Registry, h *chat.Handler, allowedOrigins []string, log *zap.Logger) *Gateway {
	log = logger.OrNop(log)
	policy := newOriginPolicy(allowedOrigins, log)
	return &Gateway{
		ctx:      ctx,
		registry: reg,
		handler:  h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
		log: log,
	}
}

// WebSocketHandler upgrades the request and runs a chat session over it. The
// first message is the display name, as on the TCP transport.
func (g *Gateway) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	g.handler.Go(g.ctx, newWSStream(conn), chat.TransportWebSocket)
}

// ClientsHandler lists the clients currently in the chat, in join order.
func (g *Gateway) ClientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := g.registry.Snapshot()
	clients := make([]ClientInfo, 0, len(snapshot))
	for _, c := range snapshot {
		clients = append(clients, ClientInfo{
			ID:        c.ID(),
			Name:      c.Name(),
			Addr:      c.Addr(),
			Transport: c.Transport(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(clients); err != nil {
		g.log.Debug("error writing clients response", zap.Error(err))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

// TestPageHandler serves an HTML page for trying the chat from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; white-space: pre-wrap; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>GoChat Test</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div>
        <input type="text" id="nameInput" placeholder="Your name">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>
    <div id="messages"></div>
    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text) {
            const line = document.createElement('div');
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            ws.onopen = function() {
                ws.send(nameInput.value || 'anonymous');
                updateStatus(true);
            };
            ws.onmessage = function(event) { addLine(event.data); };
            ws.onclose = function() {
                addLine('Disconnected from server.');
                updateStatus(false);
                ws = null;
            };
        }

        function sendMessage() {
            const message = messageInput.value;
            if (message.trim() && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(message);
                addLine('> ' + message);
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
