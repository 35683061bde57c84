package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Seednode/bananagrams/internal/dictionary"
	"github.com/Seednode/bananagrams/internal/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*httptest.Server, *GameManager) {
	t.Helper()

	cfg := &Config{port: 8080}
	errs := make(chan error, 16)
	mux, gm := newRouter(cfg, dictionary.NewList("cat", "act", "tan"), errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gm.Close()
		srv.Close()
	})

	return srv, gm
}

type wsMessage struct {
	Type    string     `json:"type"`
	ID      string     `json:"id"`
	Message string     `json:"message"`
	State   game.State `json:"state"`
}

func dial(t *testing.T, srv *httptest.Server, gameID string) (*websocket.Conn, string) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bananagrams/" + gameID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	info := readUntil(t, conn, "session_info", nil)
	readUntil(t, conn, "gameState", nil)

	return conn, info.ID
}

// readUntil reads messages until one of type typ arrives that satisfies ok.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, ok func(wsMessage) bool) wsMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ && (ok == nil || ok(msg)) {
			return msg
		}
	}
}

func TestWebsocketGame(t *testing.T) {
	srv, _ := newTestServer(t)

	alice, aliceID := dial(t, srv, "table1")
	bob, bobID := dial(t, srv, "table1")

	if err := alice.WriteJSON(ClientMessage{Type: "joinGame", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	st := readUntil(t, alice, "gameState", func(m wsMessage) bool { return len(m.State.Players) == 1 }).State
	if st.CurrentPlayer == nil || *st.CurrentPlayer != aliceID {
		t.Fatalf("current player = %v, want %s", st.CurrentPlayer, aliceID)
	}

	if err := bob.WriteJSON(ClientMessage{Type: "joinGame", Name: "Bob"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, alice, "gameState", func(m wsMessage) bool { return len(m.State.Players) == 2 })

	// Bob cannot flip out of turn; Alice can.
	if err := bob.WriteJSON(ClientMessage{Type: "flipLetter"}); err != nil {
		t.Fatal(err)
	}
	if err := alice.WriteJSON(ClientMessage{Type: "flipLetter"}); err != nil {
		t.Fatal(err)
	}
	st = readUntil(t, alice, "gameState", func(m wsMessage) bool { return len(m.State.CenterLetters) == 1 }).State
	if *st.CurrentPlayer != bobID {
		t.Fatalf("current player = %s, want %s", *st.CurrentPlayer, bobID)
	}

	// A real word that cannot be built is refused to Alice only.
	if err := alice.WriteJSON(ClientMessage{Type: "claimWord", Word: "cat"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, alice, "error", nil)
	if msg.Message != game.ErrCannotForm.Error() {
		t.Fatalf("error = %q, want %q", msg.Message, game.ErrCannotForm)
	}

	if err := alice.WriteJSON(ClientMessage{Type: "kickPlayer", TargetPlayerID: bobID}); err != nil {
		t.Fatal(err)
	}
	kicked := readUntil(t, bob, "kicked", nil)
	if kicked.Message != game.KickMessage {
		t.Errorf("kick message = %q", kicked.Message)
	}
	st = readUntil(t, alice, "gameState", func(m wsMessage) bool { return len(m.State.Players) == 1 }).State
	if *st.CurrentPlayer != aliceID {
		t.Errorf("turn did not return to Alice after kick")
	}

	_ = bob.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Error("kicked connection still open")
	}
}

func TestWebsocketDisconnectDropsWordlessPlayer(t *testing.T) {
	srv, gm := newTestServer(t)

	alice, _ := dial(t, srv, "table2")
	watcher, _ := dial(t, srv, "table2")

	if err := alice.WriteJSON(ClientMessage{Type: "joinGame", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, watcher, "gameState", func(m wsMessage) bool { return len(m.State.Players) == 1 })

	alice.Close()

	st := readUntil(t, watcher, "gameState", func(m wsMessage) bool { return len(m.State.Players) == 0 }).State
	if st.CurrentPlayer != nil {
		t.Errorf("turn held after last player left: %s", *st.CurrentPlayer)
	}
	if gm.lookupHub("table2") == nil {
		t.Error("hub vanished while a client is connected")
	}
}

func TestStateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/bananagrams/nowhere/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown game: status %d, want 404", resp.StatusCode)
	}

	dial(t, srv, "table3")

	resp, err = http.Get(srv.URL + "/bananagrams/table3/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var st game.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.TotalLetters == 0 || len(st.LetterPool) != 26 {
		t.Errorf("unexpected snapshot %+v", st)
	}
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	tests := []struct {
		path   string
		status int
		ctype  string
	}{
		{"/healthz", http.StatusOK, "text/plain"},
		{"/version", http.StatusOK, "text/plain"},
		{"/bananagrams", http.StatusTemporaryRedirect, ""},
		{"/bananagrams/abc", http.StatusOK, "text/html"},
		{"/bananagrams/abc/qr", http.StatusOK, "image/png"},
		{"/assets/bananagrams/app.js", http.StatusOK, "text/javascript"},
		{"/assets/missing.js", http.StatusNotFound, ""},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml"},
	}

	for _, test := range tests {
		resp, err := client.Get(srv.URL + test.path)
		if err != nil {
			t.Fatalf("GET %s: %v", test.path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != test.status {
			t.Errorf("GET %s: status %d, want %d", test.path, resp.StatusCode, test.status)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, test.ctype) {
			t.Errorf("GET %s: content type %q, want %q", test.path, ct, test.ctype)
		}
	}
}

func TestNewGameIDsAreUnique(t *testing.T) {
	gm := newGameManager(0, dictionary.NewList())
	defer gm.Close()

	seen := make(map[string]bool)
	for range 100 {
		id := gm.newGameID()
		if len(id) != 8 {
			t.Fatalf("id %q is not 8 characters", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestReapIdleHubs(t *testing.T) {
	gm := newGameManager(0, dictionary.NewList())
	defer gm.Close()

	hub := gm.getHub("idle")
	gm.reap(time.Now().Add(-time.Hour))
	if gm.lookupHub("idle") == nil {
		t.Fatal("fresh hub reaped")
	}

	gm.reap(time.Now().Add(time.Second))
	if gm.lookupHub("idle") != nil {
		t.Fatal("idle hub not reaped")
	}

	select {
	case <-hub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("reaped hub still running")
	}
}

func TestDefineEndpoint(t *testing.T) {
	dict := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entries/cat" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"word":"cat","phonetic":"/kæt/","meanings":[{"partOfSpeech":"noun","definitions":[{"definition":"A small feline."}]}]}]`))
	}))
	defer dict.Close()

	cfg := &Config{port: 8080}
	mux, gm := newRouter(cfg, dictionary.NewClient(dict.URL+"/entries/"), make(chan error, 16))
	srv := httptest.NewServer(mux)
	defer func() {
		gm.Close()
		srv.Close()
	}()

	resp, err := http.Get(srv.URL + "/bananagrams/table4/define/CAT")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var def dictionary.Definition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		t.Fatal(err)
	}
	want := dictionary.Definition{Word: "cat", Phonetic: "/kæt/", PartOfSpeech: "noun", Meaning: "A small feline."}
	if def != want {
		t.Errorf("definition = %+v, want %+v", def, want)
	}

	resp, err = http.Get(srv.URL + "/bananagrams/table4/define/xyzzy")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown word: status %d, want 404", resp.StatusCode)
	}
}

func TestDefineWithoutDictionaryService(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/bananagrams/table5/define/cat")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404 from an offline word list", resp.StatusCode)
	}
}

func TestHealthAndRobots(t *testing.T) {
	srv, _ := newTestServer(t)

	get := func(path string) string {
		t.Helper()

		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return string(body)
	}

	if got := get("/healthz"); got != "Ok\nGames: 0\n" {
		t.Errorf("healthz = %q", got)
	}

	dial(t, srv, "table6")
	if got := get("/healthz"); got != "Ok\nGames: 1\n" {
		t.Errorf("healthz with one game = %q", got)
	}

	robots := get("/robots.txt")
	for _, want := range []string{"User-agent: *\nDisallow: /bananagrams/\n", "User-agent: GPTBot\nDisallow: /\n"} {
		if !strings.Contains(robots, want) {
			t.Errorf("robots.txt missing %q:\n%s", want, robots)
		}
	}
}
