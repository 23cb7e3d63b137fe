package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/config"
	"github.com/iliyamo/online-storefront/internal/database"
	"github.com/iliyamo/online-storefront/internal/handler"
	"github.com/iliyamo/online-storefront/internal/mailer"
	"github.com/iliyamo/online-storefront/internal/middleware"
	"github.com/iliyamo/online-storefront/internal/queue"
	"github.com/iliyamo/online-storefront/internal/repository"
	"github.com/iliyamo/online-storefront/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	stock := repository.NewStockRepo(db)
	orders := repository.NewOrderRepo(db)

	m := mailer.New(cfg)
	if m == nil {
		log.Println("mailer: SMTP not configured, order confirmation emails disabled")
	}
	go func() {
		if err := queue.StartOrderConsumer(m); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	var rateLimit, cache echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled {
		rateLimit = middleware.NewRateLimit(rlCfg, rdb)
	}
	if cCfg := config.LoadCacheConfig(); cCfg.Enabled {
		cache = middleware.NewCatalogCache(cCfg, rdb)
	}

	router.Register(e, db, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users),
		Catalog:   handler.NewCatalogHandler(products, stock),
		Products:  handler.NewProductAdminHandler(products, stock),
		Inventory: handler.NewInventoryHandler(stock),
		Orders:    handler.NewOrderHandler(orders, products, stock, users),
	}, []byte(cfg.JWTSecret), rateLimit, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
