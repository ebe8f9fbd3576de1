package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"adledger/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Pinger reports whether the authoritative store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the ledger over HTTP
type Server struct {
	ledger      service.LedgerService
	db          Pinger
	adminAPIKey string
	engine      *gin.Engine
	httpServer  *http.Server
}

// NewServer builds the router. The admin routes are only mounted when adminAPIKey is set.
func NewServer(ledger service.LedgerService, db Pinger, adminAPIKey string) *Server {
	s := &Server{
		ledger:      ledger,
		db:          db,
		adminAPIKey: adminAPIKey,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/config", s.getConfig)
	api.GET("/stats", s.getStats)

	users := api.Group("/users")
	users.POST("", s.createUser)
	users.GET("/:id", s.getUser)
	users.POST("/:id/referral", s.attachReferral)
	users.GET("/:id/referrals", s.getReferralStats)
	users.POST("/:id/ads", s.recordAdWatch)
	users.PUT("/:id/wallet", s.updateWallet)
	users.POST("/:id/withdrawals", s.requestWithdrawal)
	users.GET("/:id/withdrawals", s.listWithdrawals)
	users.GET("/:id/history", s.listHistory)
	users.POST("/:id/tasks", s.completeTask)
	users.GET("/:id/tasks", s.listTasks)

	if s.adminAPIKey != "" {
		admin := api.Group("/admin", adminAuth(s.adminAPIKey))
		admin.DELETE("/users/:id", s.deleteUser)
	}

	return r
}

// Start serves HTTP on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("addr", addr).Info("HTTP API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
