// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Records are encoded through their Raw form so field names, widths and
// bitmask values stay those of the C structures TGNSSTime,
// TGNSSSatelliteDetail and TGNSSPosition. The binary form is packed
// little-endian without padding.

// Encoded sizes of the binary forms.
var (
	TimeBinarySize            = binary.Size(RawTime{})
	SatelliteDetailBinarySize = binary.Size(RawSatelliteDetail{})
	PositionBinarySize        = binary.Size(RawPosition{})
)

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var r RawTime
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("gnss time: %w", err)
	}
	*t = TimeFromRaw(r)
	return nil
}

func (t Time) MarshalBinary() ([]byte, error) {
	return marshalRaw(t.Raw())
}

func (t *Time) UnmarshalBinary(data []byte) error {
	var r RawTime
	if err := unmarshalRaw(data, TimeBinarySize, &r); err != nil {
		return fmt.Errorf("gnss time: %w", err)
	}
	*t = TimeFromRaw(r)
	return nil
}

func (s SatelliteDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw())
}

func (s *SatelliteDetail) UnmarshalJSON(data []byte) error {
	var r RawSatelliteDetail
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("gnss satellite detail: %w", err)
	}
	*s = SatelliteDetailFromRaw(r)
	return nil
}

func (s SatelliteDetail) MarshalBinary() ([]byte, error) {
	return marshalRaw(s.Raw())
}

func (s *SatelliteDetail) UnmarshalBinary(data []byte) error {
	var r RawSatelliteDetail
	if err := unmarshalRaw(data, SatelliteDetailBinarySize, &r); err != nil {
		return fmt.Errorf("gnss satellite detail: %w", err)
	}
	*s = SatelliteDetailFromRaw(r)
	return nil
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Raw())
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var r RawPosition
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("gnss position: %w", err)
	}
	*p = PositionFromRaw(r)
	return nil
}

func (p Position) MarshalBinary() ([]byte, error) {
	return marshalRaw(p.Raw())
}

func (p *Position) UnmarshalBinary(data []byte) error {
	var r RawPosition
	if err := unmarshalRaw(data, PositionBinarySize, &r); err != nil {
		return fmt.Errorf("gnss position: %w", err)
	}
	*p = PositionFromRaw(r)
	return nil
}

func marshalRaw(raw any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalRaw(data []byte, size int, raw any) error {
	if len(data) != size {
		return fmt.Errorf("binary record is %d bytes, want %d", len(data), size)
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, raw)
}
