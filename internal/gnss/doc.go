// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gnss defines the reports a GNSS receiver hands to its consumers:
// Time, SatelliteDetail and Position.
//
// Every optional field, or group of fields written together, has one bit
// in the record's validity mask. Consumers read fields through Optional
// values, so a field whose bit is unset cannot be mistaken for a zero.
// Records are built by the provider with the With* methods, each of which
// returns a new value; the validity mask is derived from the populated
// fields, and a record handed to a consumer is never modified afterwards.
//
// Raw* types carry the exact wire layout (field names, widths and bit
// values) for interoperating with existing producers and consumers.
package gnss
