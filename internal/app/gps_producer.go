package app

import (
	"context"
	"fmt"
	"log"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// RunGPSProducer opens the GPS serial port, assembles NMEA sentences into
// epochs and publishes each epoch's time, position and satellite reports.
func RunGPSProducer() error {
	cfg := config.Get()

	pub, err := NewEpochPublisher(cfg, cfg.MQTTClientIDGPS, "gps producer")
	if err != nil {
		return err
	}
	defer pub.Close()

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("gps producer: open %s: %w", cfg.GPSSerialPort, err)
	}
	defer port.Close()
	log.Printf("gps producer: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)
	log.Printf("gps producer: activated systems %s", cfg.GNSSActivatedSystems)

	asm := gps.NewAssembler(cfg.GNSSActivatedSystems)
	ctx := context.Background()

	err = gps.ReadSentences(port, asm, func(e gps.Epoch) error {
		if err := pub.Publish(ctx, e); err != nil {
			log.Printf("gps producer: %v", err)
			return nil
		}
		fix, _ := e.Position.FixStatus().Get()
		log.Printf("gps producer: published epoch fix=%s sats=%d", fix, len(e.Satellites))
		return nil
	})
	if err != nil {
		return fmt.Errorf("gps producer: read: %w", err)
	}
	return fmt.Errorf("gps producer: serial port %s closed", cfg.GPSSerialPort)
}
