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

	log.Println("starting gnss-reports console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
