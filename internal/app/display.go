package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13

	// address the ssd1306 driver always talks to
	ssd1306Addr = 0x3C
)

// remapBus sends the driver's transactions to a display strapped to
// another address.
type remapBus struct {
	i2c.Bus
	addr uint16
}

func (b *remapBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306Addr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// DisplayData holds the latest reports for display
type DisplayData struct {
	mu         sync.RWMutex
	time       gnss.Optional[gnss.Time]
	position   gnss.Optional[gnss.Position]
	satellites gnss.Optional[[]gnss.SatelliteDetail]
}

func (d *DisplayData) snapshot() (gnss.Optional[gnss.Time], gnss.Optional[gnss.Position], gnss.Optional[[]gnss.SatelliteDetail]) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.time, d.position, d.satellites
}

// RunDisplay shows the latest fix on an SSD1306 over I2C, alternating a
// position page and a satellite page.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	var devBus i2c.Bus = bus
	if cfg.DisplayI2CAddr != ssd1306Addr {
		devBus = &remapBus{Bus: bus, addr: cfg.DisplayI2CAddr}
	}
	dev, err := ssd1306.NewI2C(devBus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := drawLines(dev, []string{"", "GNSS reports", "Looking for", "sats"}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := topicsFrom(cfg)
	if err := subscribe(client, topics.Time, "display", func(payload []byte) {
		var t gnss.Time
		if err := json.Unmarshal(payload, &t); err != nil {
			log.Printf("display: time unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.time = gnss.Some(t)
		data.mu.Unlock()
	}); err != nil {
		return err
	}
	if err := subscribe(client, topics.Position, "display", func(payload []byte) {
		var p gnss.Position
		if err := json.Unmarshal(payload, &p); err != nil {
			log.Printf("display: position unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.position = gnss.Some(p)
		data.mu.Unlock()
	}); err != nil {
		return err
	}
	if err := subscribe(client, topics.Satellites, "display", func(payload []byte) {
		var sats []gnss.SatelliteDetail
		if err := json.Unmarshal(payload, &sats); err != nil {
			log.Printf("display: satellites unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.satellites = gnss.Some(sats)
		data.mu.Unlock()
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	page := 0
	for range ticker.C {
		tm, pos, sats := data.snapshot()

		var lines []string
		if page%2 == 0 {
			lines = positionPage(tm, pos)
		} else {
			lines = satellitePage(pos, sats)
		}
		page++

		if err := drawLines(dev, lines); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

// positionPage lays out the fix on four display lines.
func positionPage(tm gnss.Optional[gnss.Time], pos gnss.Optional[gnss.Position]) []string {
	p, ok := pos.Get()
	if !ok {
		return []string{"GNSS Position", "Waiting..."}
	}

	lines := []string{"Fix " + p.FixStatus().String()}
	if lat, lon, ok := p.LatLon(); ok {
		lines = append(lines, hemisphere(lat, "N", "S"), hemisphere(lon, "E", "W"))
	} else {
		lines = append(lines, "Lat n/a", "Lon n/a")
	}

	last := "Alt " + optf(p.AltitudeMSL(), "%.0fm")
	if t, ok := tm.Get(); ok {
		if c, ok := t.Clock().Get(); ok {
			last += fmt.Sprintf(" %02d:%02d:%02d", c.Hour, c.Minute, c.Second)
		}
	}
	return append(lines, last)
}

func hemisphere(deg float64, pos, neg string) string {
	dir := pos
	if deg < 0 {
		dir = neg
		deg = -deg
	}
	return fmt.Sprintf("%.5f%s", deg, dir)
}

// satellitePage shows the satellite counts and the used systems.
func satellitePage(pos gnss.Optional[gnss.Position], sats gnss.Optional[[]gnss.SatelliteDetail]) []string {
	p, havePos := pos.Get()
	list, haveSats := sats.Get()
	if !havePos && !haveSats {
		return []string{"Satellites", "Waiting..."}
	}

	lines := []string{fmt.Sprintf("Sat %s/%s/%s", p.UsedSatellites(), p.TrackedSatellites(), p.VisibleSatellites())}
	lines = append(lines, "DOP "+optf(p.HDOP(), "H%.1f")+" "+optf(p.VDOP(), "V%.1f"))

	// used satellites per system
	perSystem := map[string]int{}
	for _, s := range list {
		used, _ := s.Used().Get()
		sys, ok := s.System().Get()
		if !used || !ok {
			continue
		}
		perSystem[shortSystem(sys)]++
	}
	names := make([]string, 0, len(perSystem))
	for n := range perSystem {
		names = append(names, n)
	}
	sort.Strings(names)
	var parts []string
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s%d", n, perSystem[n]))
	}
	if len(parts) == 0 {
		parts = append(parts, "none used")
	}
	// two systems per line fit in 18 columns
	for i := 0; i < len(parts) && len(lines) < 4; i += 2 {
		end := min(i+2, len(parts))
		lines = append(lines, strings.Join(parts[i:end], " "))
	}
	return lines
}

func shortSystem(s gnss.System) string {
	switch {
	case s == gnss.SystemGPS:
		return "GPS"
	case s == gnss.SystemGLONASS:
		return "GLO"
	case s == gnss.SystemGalileo:
		return "GAL"
	case s == gnss.SystemBeiDou:
		return "BDS"
	case s.IsAugmentation():
		return "SBAS"
	default:
		return "OTH"
	}
}

// renderLines draws up to four text lines into a display-sized image.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, line := range lines {
		if i >= displayHeight/lineHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	return dev.Draw(dev.Bounds(), renderLines(lines), image.Point{})
}
