package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gnss_reports/internal/app"
	"github.com/relabs-tech/gnss_reports/internal/config"
)

func main() {
	configPath := flag.String("config", "./gnss_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting gnss-reports SSD1306 display (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
