// Bananagrams
//
// Players take turns flipping letters from a shared pool into the center.
// Anyone may claim a word built from center letters at any time, or steal
// a claimed word by rebuilding it into a new word with extra center
// letters. When the pool runs dry the player holding the most letters wins.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Each websocket connection gets a fresh UUID as its player id
// - Reconnecting with the same name reclaims a disconnected player's words
// - Any player can kick another player or restart the game
// - Rejections are sent only to the player who made the request
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/bananagrams/internal/dictionary"
	"github.com/Seednode/bananagrams/internal/game"
)

// Messages coming from clients
type ClientMessage struct {
	Type           string `json:"type"`                     // "joinGame", "flipLetter", "claimWord", "stealWord", "kickPlayer", "restartGame"
	Name           string `json:"name,omitempty"`           // joinGame
	Word           string `json:"word,omitempty"`           // claimWord
	TargetPlayerID string `json:"targetPlayerId,omitempty"` // stealWord / kickPlayer
	TargetWord     string `json:"targetWord,omitempty"`     // stealWord
	NewWord        string `json:"newWord,omitempty"`        // stealWord
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which player id belongs to it.
type SessionInfoMessage struct {
	Type string `json:"type"` // "session_info"
	ID   string `json:"id"`
}

// GameStateMessage carries a full snapshot of the table.
type GameStateMessage struct {
	Type  string     `json:"type"` // "gameState"
	State game.State `json:"state"`
}

// SimpleMessage is for one-off notifications ("error", "kicked").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
}

type intent struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[string]*Client
	session *game.Session
	logger  zerolog.Logger

	register chan *Client
	unreg    chan *Client
	intents  chan intent
	done     chan struct{}
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, validator dictionary.Validator) *Hub {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		id:         gameID,
		clients:    make(map[string]*Client),
		logger:     log.With().Str("game", gameID).Logger(),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		intents:    make(chan intent),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		createdAt:  now,
		lastActive: now,
	}
	h.session = game.NewSession(validator,
		game.WithNotifier(h),
		game.WithLogger(h.logger),
	)

	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c.id] = c
			h.mu.Unlock()

			// Tell the client who it is, then catch it up.
			h.sendTo(c, SessionInfoMessage{Type: "session_info", ID: c.id})
			h.sendTo(c, GameStateMessage{Type: "gameState", State: h.session.State()})

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()

			// Slow clients were already dropped from clients but still
			// hold a seat; kicked ones are no longer seated and this is a
			// no-op beyond the broadcast.
			h.session.Disconnect(c.id)

		case in := <-h.intents:
			h.touch()
			h.dispatch(in)
		}
	}
}

// dispatch applies one client request. Claims and steals wait on the
// dictionary, so they run on their own goroutine and only stall the player
// who asked.
func (h *Hub) dispatch(in intent) {
	c := in.client
	msg := in.msg

	switch msg.Type {
	case "joinGame":
		_ = h.session.Join(c.id, msg.Name)
	case "flipLetter":
		h.session.Draw(c.id)
	case "claimWord":
		go func() {
			_ = h.session.Claim(h.ctx, c.id, msg.Word)
		}()
	case "stealWord":
		go func() {
			_ = h.session.Steal(h.ctx, c.id, msg.TargetPlayerID, msg.TargetWord, msg.NewWord)
		}()
	case "kickPlayer":
		h.session.Kick(msg.TargetPlayerID)
	case "restartGame":
		h.session.Restart()
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// sendTo queues msg for one client, dropping the client if it has fallen
// too far behind.
func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sendLocked(c, msg)
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Broadcast sends the table to every connection.
func (h *Hub) Broadcast(st game.State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := GameStateMessage{Type: "gameState", State: st}
	for _, client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// Reject sends a refusal to a single connection.
func (h *Hub) Reject(connID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connID]; ok {
		h.sendLocked(c, SimpleMessage{Type: "error", Message: reason})
	}
}

// Kick notifies a connection that it was removed and hangs up on it once
// the notice is written.
func (h *Hub) Kick(connID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}

	select {
	case c.send <- SimpleMessage{Type: "kicked", Message: message}:
	default:
	}
	delete(h.clients, connID)
	close(c.send)
}

// closeAll disconnects all clients of this hub and stops it (used by reaper).
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.cancel()
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated table.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	validator   dictionary.Validator
	done        chan struct{}
	closeOnce   sync.Once
}

func newGameManager(idleTimeout time.Duration, validator dictionary.Validator) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		validator:   validator,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, gm.validator)
	gm.hubs[gameID] = hub
	go hub.run()

	hub.logger.Info().Msg("GAMES: Opened game")

	return hub
}

// Len reports how many games are open.
func (gm *GameManager) Len() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return len(gm.hubs)
}

// lookupHub returns an existing hub without creating one.
func (gm *GameManager) lookupHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return gm.hubs[gameID]
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			hub.logger.Info().
				Dur("age", time.Since(hub.createdAt).Round(time.Second)).
				Msg("GAMES: Reaped idle game")
			go hub.closeAll()
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

// Close shuts every hub down.
func (gm *GameManager) Close() {
	gm.closeOnce.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub := gm.getHub(gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Debug().Err(err).Msg("GAMES: Websocket upgrade failed")
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
			id:   uuid.NewString(),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		hub.logger.Debug().Str("conn", client.id).Str("ip", realIP(r)).Msg("GAMES: Connected")

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "joinGame", "flipLetter", "claimWord", "stealWord", "kickPlayer", "restartGame":
			select {
			case h.intents <- intent{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// serveState returns the current snapshot of an existing game as JSON.
func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub := gm.lookupHub(ps.ByName("gameid"))
		if hub == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(hub.session.State()); err != nil {
			errs <- err
		}
	}
}

// serveDefinition explains a word, when the configured dictionary can.
func serveDefinition(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		definer, ok := gm.validator.(dictionary.Definer)
		if !ok {
			http.Error(w, "definitions unavailable", http.StatusNotFound)
			return
		}

		def, ok := definer.Define(r.Context(), ps.ByName("word"))
		if !ok {
			http.Error(w, "no definition found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(def); err != nil {
			errs <- err
		}
	}
}

func serveIndex(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/bananagrams/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		log.Debug().Str("game", gameID).Msgf("GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerBananagrams sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
//   - $path/:gameid/state    → JSON snapshot of that game
//   - $path/:gameid/define/:word → JSON definition of a claimed word
func registerBananagrams(cfg *Config, path string, validator dictionary.Validator, mux *httprouter.Router, errs chan<- error) *GameManager {
	gm := newGameManager(cfg.sessionTimeout, validator)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", serveIndex(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))
	mux.GET(cfg.prefix+path+"/:gameid/define/:word", serveDefinition(cfg, gm, errs))

	return gm
}
