package main

import (
	"errors"
	"flag"
	"log"

	"trevpay/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// 维护远端 postgres 的 synced_transactions 表
func main() {
	var command, source string
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down")
	flag.StringVar(&source, "source", "file://migrations", "Migration source URL")
	flag.Parse()

	// 加载配置
	config.Init()

	m, err := migrate.New(source, config.Global.DB.URL())
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migration up done")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration down done")
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
