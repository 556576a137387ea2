package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinScout/internal/domain/models"
	applogger "CoinScout/pkg/logger"
)

func startHub(t *testing.T, snap models.RankedPortfolio) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub(func() models.RankedPortfolio { return snap }, applogger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	// wait for Run to flip the running flag
	deadline := time.Now().Add(time.Second)
	for !hub.isRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHub_SnapshotOnConnectThenBroadcast(t *testing.T) {
	snap := models.RankedPortfolio{
		Coins:      []models.ScoredAsset{{Symbol: "BTC", InstID: "BTC-USDT", Score: 45}},
		LastUpdate: time.Now(),
	}
	hub, conn := startHub(t, snap)

	first := readMessage(t, conn)
	if first.Type != MessageTypePortfolio || len(first.Data) != 1 || first.Data[0].Symbol != "BTC" {
		t.Fatalf("unexpected initial message: %+v", first)
	}

	next := models.RankedPortfolio{
		Coins: []models.ScoredAsset{
			{Symbol: "ETH", InstID: "ETH-USDT", Score: 60},
			{Symbol: "SOL", InstID: "SOL-USDT", Score: 30},
		},
		LastUpdate: time.Now(),
		Synthetic:  true,
	}
	hub.OnPortfolio(context.Background(), next, models.CycleReport{ID: "c-2"}, nil)

	got := readMessage(t, conn)
	if len(got.Data) != 2 || got.Data[0].Rank != 1 || got.Data[1].Symbol != "SOL" || !got.Synthetic {
		t.Fatalf("unexpected broadcast: %+v", got)
	}
}

func TestHub_FailedCycleMessage(t *testing.T) {
	hub, conn := startHub(t, models.RankedPortfolio{})
	_ = readMessage(t, conn)

	hub.OnPortfolio(context.Background(), models.RankedPortfolio{}, models.CycleReport{ID: "c-9"}, errors.New("exchange down"))
	got := readMessage(t, conn)
	if got.Type != MessageTypeError || got.Error != "exchange down" || got.CycleID != "c-9" {
		t.Fatalf("unexpected error message: %+v", got)
	}
}
