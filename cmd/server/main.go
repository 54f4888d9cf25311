package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kanrihq/kanri-backend/internal/config"
	"github.com/kanrihq/kanri-backend/internal/database"
	"github.com/kanrihq/kanri-backend/internal/handler"
	"github.com/kanrihq/kanri-backend/internal/queue"
	"github.com/kanrihq/kanri-backend/internal/repository"
	"github.com/kanrihq/kanri-backend/internal/response"
	"github.com/kanrihq/kanri-backend/internal/router"
	"github.com/kanrihq/kanri-backend/internal/service"
	"github.com/kanrihq/kanri-backend/internal/token"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	members := repository.NewMemberRepo(db)
	roles := repository.NewRoleRepo(db)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Seed(seedCtx, members, roles, cfg.AdminPassword, cfg.BcryptCost, cfg.SeedAdmin); err != nil {
		log.Fatalf("seed: %v", err)
	}

	codec := token.NewCodec(cfg.JWTSecret)
	auth := service.NewAuthService(members, roles, codec, cfg.AccessTTL, cfg.RefreshTTL, cfg.BcryptCost)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	go func() {
		if err := queue.StartMemberConsumer(); err != nil {
			log.Printf("member consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, cfg, codec, members,
		handler.NewAuthHandler(cfg, auth),
		handler.NewMemberHandler(members),
		rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
