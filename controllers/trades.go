package controllers

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var (
	minPrice   = decimal.NewFromInt(10)
	priceRange = decimal.NewFromInt(99990)
)

// PriceTick is one simulated quote.
type PriceTick struct {
	Price float64 `json:"price"`
}

// RandomPrice returns a price in [10, 100000) with two decimals.
func RandomPrice() decimal.Decimal {
	return decimal.NewFromFloat(rand.Float64()).Mul(priceRange).Add(minPrice).Truncate(2)
}

// TradeHandler streams simulated prices. Each connection owns one ticker,
// stopped as soon as the client goes away.
type TradeHandler struct {
	Interval       time.Duration
	AllowedOrigins []string
	Logger         *zap.Logger
	// Price defaults to RandomPrice.
	Price func() decimal.Decimal
}

func (h *TradeHandler) tick() PriceTick {
	price := RandomPrice
	if h.Price != nil {
		price = h.Price
	}
	return PriceTick{Price: price().InexactFloat64()}
}

func (h *TradeHandler) interval() time.Duration {
	if h.Interval <= 0 {
		return time.Second
	}
	return h.Interval
}

func (h *TradeHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Live handler: text/event-stream with one data frame per tick
func (h *TradeHandler) Live(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(h.tick())
			if err != nil {
				h.log().Error("encode price", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func (h *TradeHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// LiveWS handler: same ticks as Live, one JSON message each over a WebSocket
func (h *TradeHandler) LiveWS(c *gin.Context) {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// the reader only watches for the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log().Debug("websocket read", zap.Error(err))
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}()

	ticker := time.NewTicker(h.interval())
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(h.tick()); err != nil {
				return
			}
		}
	}
}
