package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/rthakur/expenso/internal/auth"
	"github.com/rthakur/expenso/internal/authz"
	"github.com/rthakur/expenso/internal/config"
	"github.com/rthakur/expenso/internal/middleware"
	"github.com/rthakur/expenso/internal/rpc"
	"github.com/rthakur/expenso/internal/service"
	"github.com/rthakur/expenso/internal/storage/sqlite"
	"github.com/rthakur/expenso/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	engine := authz.New(store, store)
	groupSvc := service.NewGroupService(store, store, store, engine)
	memberSvc := service.NewMemberService(store, store, store, engine)
	expenseSvc := service.NewExpenseService(store)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	gateway := rpc.NewGateway(authenticator, jwtManager)

	// Tool calls require a valid session token; the gateway and metrics
	// endpoints do not.
	tools := http.NewServeMux()
	rpc.NewServer(groupSvc, memberSvc, expenseSvc, store).Routes(tools)

	mux := http.NewServeMux()
	gateway.Routes(mux)
	mux.Handle("/v1/tools/", middleware.RequireAuth(jwtManager)(tools))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Logging(middleware.CORS(mux))

	// h2c allows HTTP/2 without TLS for clients that want multiplexed
	// tool calls over one connection.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
