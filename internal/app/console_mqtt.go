package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

// RunConsoleMQTT prints every report received on the GNSS topics until
// interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := topicsFrom(cfg)

	err = subscribe(client, topics.Time, "console", func(payload []byte) {
		var t gnss.Time
		if err := json.Unmarshal(payload, &t); err != nil {
			log.Printf("console: time unmarshal error: %v", err)
			return
		}
		fmt.Println(FormatTime(t))
	})
	if err != nil {
		return err
	}

	err = subscribe(client, topics.Position, "console", func(payload []byte) {
		var p gnss.Position
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Printf("console: position unmarshal error: %v", err)
			return
		}
		fmt.Println(FormatPosition(p))
		if err := p.Check(); err != nil {
			log.Printf("console: inconsistent position: %v", err)
		}
	})
	if err != nil {
		return err
	}

	err = subscribe(client, topics.Satellites, "console", func(payload []byte) {
		var sats []gnss.SatelliteDetail
		if err := json.Unmarshal(payload, &sats); err != nil {
			log.Printf("console: satellites unmarshal error: %v", err)
			return
		}
		fmt.Println(FormatSatellites(sats))
	})
	if err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
