// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"github.com/relabs-tech/enviro_logger/internal/env"
)

// liveView keeps the latest batch and pushes every new one to websocket
// clients.
type liveView struct {
	mu      sync.RWMutex
	last    env.Batch
	have    bool
	clients map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

func newLiveView() *liveView {
	return &liveView{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (v *liveView) update(b env.Batch) {
	v.mu.Lock()
	v.last = b
	v.have = true
	clients := make([]*websocket.Conn, 0, len(v.clients))
	for c := range v.clients {
		clients = append(clients, c)
	}
	v.mu.Unlock()

	for _, c := range clients {
		_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(b); err != nil {
			log.Printf("web: websocket write error: %v", err)
			v.drop(c)
		}
	}
}

func (v *liveView) drop(c *websocket.Conn) {
	v.mu.Lock()
	delete(v.clients, c)
	n := len(v.clients)
	v.mu.Unlock()
	c.Close()
	log.Printf("web: client disconnected, %d connected", n)
}

func (v *liveView) router(staticDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/latest", v.handleLatest)
	r.GET("/ws", v.handleWebSocket)

	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		r.NoRoute(gin.WrapH(fs))
	}
	return r
}

func (v *liveView) handleLatest(c *gin.Context) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.have {
		c.String(http.StatusServiceUnavailable, "no data yet")
		return
	}
	c.JSON(http.StatusOK, v.last)
}

func (v *liveView) handleWebSocket(c *gin.Context) {
	conn, err := v.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	v.mu.RLock()
	last, have := v.last, v.have
	v.mu.RUnlock()
	if have {
		if err := conn.WriteJSON(last); err != nil {
			conn.Close()
			return
		}
	}

	v.mu.Lock()
	v.clients[conn] = true
	n := len(v.clients)
	v.mu.Unlock()
	log.Printf("web: client connected, %d connected", n)

	// Clients never send; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			v.drop(conn)
			return
		}
	}
}

// RunWeb serves the latest batch over HTTP and websocket, fed from the
// producer's MQTT mirror.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	view := newLiveView()

	client, err := subscribeBatches(cfg, cfg.MQTTClientIDWeb, "web", view.update)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           view.router("web"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
