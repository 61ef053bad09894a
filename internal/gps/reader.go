// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"errors"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ReadSentences reads NMEA lines from r, feeds them to asm and calls emit
// for every completed epoch. Noise and unparsable sentences are skipped.
// At end of input the pending cycle is flushed and nil is returned.
func ReadSentences(r io.Reader, asm *Assembler, emit func(Epoch) error) error {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		// NMEA sentences start with '$'
		if strings.HasPrefix(line, "$") {
			if sentence, perr := nmea.Parse(line); perr == nil {
				if epoch, ok := asm.Add(sentence); ok {
					if err := emit(epoch); err != nil {
						return err
					}
				}
			}
		}

		if eof {
			if epoch, ok := asm.Flush(); ok {
				return emit(epoch)
			}
			return nil
		}
	}
}
