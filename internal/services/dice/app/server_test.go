package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
	platformgrpc "github.com/louisbranch/dicetray/internal/platform/grpc"
	diceservice "github.com/louisbranch/dicetray/internal/services/dice"
	dicegrpc "github.com/louisbranch/dicetray/internal/services/dice/api/grpc/dice"
	"golang.org/x/net/websocket"
)

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(Config{DBPath: filepath.Join(t.TempDir(), "d.db")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestServeRollsAndBroadcasts(t *testing.T) {
	srv, err := New(Config{
		Addr:     "127.0.0.1:0",
		FeedAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "dicetray.db"),
		D100Mode: notation.D100Hundred,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ctx)
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, err := platformgrpc.Dial(dialCtx, srv.Addr(), platformgrpc.DialOptions{Timeout: 5 * time.Second, Service: dicegrpc.ServiceName})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	feedURL := "http://" + srv.FeedAddr()
	ws, err := websocket.Dial("ws://"+srv.FeedAddr()+"/ws", "", feedURL)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer func() {
		_ = ws.Close()
	}()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	dec := json.NewDecoder(ws)
	var ready struct {
		Type string `json:"type"`
	}
	if err := dec.Decode(&ready); err != nil || ready.Type != "feed.ready" {
		t.Fatalf("expected feed.ready, got %+v %v", ready, err)
	}

	record, err := dicegrpc.NewClient(conn, "").Roll(dialCtx, diceservice.RollRequest{Notation: "2d20k1"})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if record.D100Mode != int(notation.D100Hundred) {
		t.Fatalf("expected configured d100 mode, got %d", record.D100Mode)
	}

	var created struct {
		Type    string `json:"type"`
		Payload struct {
			Roll struct {
				ID string `json:"id"`
			} `json:"roll"`
		} `json:"payload"`
	}
	if err := dec.Decode(&created); err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if created.Type != "roll.created" || created.Payload.Roll.ID != record.ID {
		t.Fatalf("unexpected feed frame: %+v", created)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
