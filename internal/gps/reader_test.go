package gps

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

func TestReadSentences(t *testing.T) {
	input := "garbage before the first sentence\n" +
		gpsCycle +
		"$GPRMC,123520.00,A,4807.0*00\r\n" + // truncated, bad checksum
		"$PUBX,00,partial\n" +
		"\n" +
		nextCycle

	asm := NewAssembler(gnss.SystemGPS)
	asm.SetClock(fixedClock(1))

	var epochs []Epoch
	err := ReadSentences(strings.NewReader(input), asm, func(e Epoch) error {
		epochs = append(epochs, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, epochs, 2)

	assert.Len(t, epochs[0].Satellites, 8)
	assert.Equal(t, gnss.Some(gnss.Fix3D), epochs[0].Position.FixStatus())

	clk, _ := epochs[1].Time.Clock().Get()
	assert.Equal(t, uint8(20), clk.Second)
	assert.Equal(t, gnss.Some(gnss.Fix2D), epochs[1].Position.FixStatus())
}

func TestReadSentencesWithoutTrailingNewline(t *testing.T) {
	input := strings.TrimSuffix(nextCycle, "\r\n")

	var n int
	err := ReadSentences(strings.NewReader(input), NewAssembler(0), func(Epoch) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReadSentencesEmptyInput(t *testing.T) {
	err := ReadSentences(strings.NewReader(""), NewAssembler(0), func(Epoch) error {
		t.Fatal("no epoch expected")
		return nil
	})
	assert.NoError(t, err)
}

func TestReadSentencesStopsOnEmitError(t *testing.T) {
	stop := errors.New("stop")

	var n int
	err := ReadSentences(strings.NewReader(gpsCycle+nextCycle+multiCycle), NewAssembler(0), func(Epoch) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}
