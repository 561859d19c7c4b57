package main

import (
	"context"
	"fmt"

	"wicked-backend/internal/config"
	"wicked-backend/internal/infrastructure/database"
	"wicked-backend/internal/interfaces/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}

	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}

	if rt.DB != nil {
		sqlDB, err := rt.DB.DB()
		if err != nil {
			panic("Postgres: get DB: " + err.Error())
		}
		if err := sqlDB.Ping(); err != nil {
			panic("Postgres connection failed: " + err.Error())
		}
		if err := database.AutoMigrate(rt.DB); err != nil {
			panic("Postgres migrate: " + err.Error())
		}
		fmt.Println("Postgres connected")
	}
	if rt.Rdb != nil {
		if err := rt.Rdb.Ping(context.Background()).Err(); err != nil {
			panic("Redis connection failed: " + err.Error())
		}
		fmt.Println("Redis connected")
	}

	if rt.Scheduler != nil {
		if err := rt.Scheduler.Start(); err != nil {
			panic("scheduler start: " + err.Error())
		}
		defer rt.Scheduler.Stop()
		fmt.Println("Notification scheduler running")
	}

	fmt.Printf("Server running at http://localhost:%s\n", cfg.Port)
	fmt.Printf("Health check: http://localhost:%s/health/json\n", cfg.Port)
	fmt.Println("---")

	if err := app.Listen(":" + cfg.Port); err != nil {
		panic(err)
	}
}
