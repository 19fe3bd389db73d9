package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func TestRandomPriceRange(t *testing.T) {
	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(100000)
	for i := 0; i < 1000; i++ {
		p := RandomPrice()
		if p.LessThan(lo) || !p.LessThan(hi) {
			t.Fatalf("price %s outside [10, 100000)", p)
		}
		if p.Exponent() < -2 {
			t.Fatalf("price %s has more than two decimals", p)
		}
	}
}

func fixedPrice() decimal.Decimal { return decimal.RequireFromString("123.45") }

func TestLiveStreamsAndStopsOnDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TradeHandler{Interval: 10 * time.Millisecond, Price: fixedPrice}

	returned := make(chan struct{})
	r := gin.New()
	r.GET("/trades/live", func(c *gin.Context) {
		h.Live(c)
		close(returned)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/trades/live", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var frames int
	for frames < 2 && sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var tick PriceTick
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &tick); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if tick.Price != 123.45 {
			t.Fatalf("price = %v", tick.Price)
		}
		frames++
	}
	if frames < 2 {
		t.Fatalf("got %d frames (scan err %v)", frames, sc.Err())
	}

	cancel()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("handler kept streaming after client disconnect")
	}
}

func TestLiveWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TradeHandler{Interval: 10 * time.Millisecond, Price: fixedPrice, AllowedOrigins: []string{"http://localhost:3000"}}

	r := gin.New()
	r.GET("/trades/live/ws", h.LiveWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trades/live/ws"

	hdr := http.Header{"Origin": {"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, hdr); err == nil {
		t.Fatal("foreign origin was accepted")
	}

	hdr = http.Header{"Origin": {"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var tick PriceTick
	if err := conn.ReadJSON(&tick); err != nil {
		t.Fatalf("read: %v", err)
	}
	if tick.Price != 123.45 {
		t.Fatalf("price = %v", tick.Price)
	}
}
