// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensirion implements the word oriented command protocol shared by
// Sensirion digital gas and humidity sensors.
//
// A command is a 16-bit word sent big-endian, optionally followed by 16-bit
// argument words. Replies consist of 16-bit data words. Every data word on
// the wire, in either direction, is followed by an 8-bit CRC of its two
// bytes.
package sensirion

import (
	"time"

	"github.com/sigurn/crc8"
)

// crcTable holds the checksum parameters from the Sensirion datasheets:
// polynomial 0x31, initial value 0xFF, no reflection, no final XOR. The
// check value is the checksum of "123456789".
var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xFF,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xF7,
	Name:   "CRC-8/Sensirion",
})

// CRC8 returns the checksum the sensor family transmits after each data
// word.
func CRC8(bytes []byte) byte {
	return crc8.Checksum(bytes, crcTable)
}

const (
	wordLen  = 2
	frameLen = 3 // data word plus its CRC byte
)

// Command describes one entry of a device's command set.
type Command struct {
	// The 16-bit command word, sent big-endian.
	Opcode uint16
	// Number of 16-bit argument words following the command word.
	ArgWords int
	// Number of 16-bit data words in the reply, CRC bytes not counted.
	ReplyWords int
	// Time the sensor needs after the write before the reply may be read.
	Settle time.Duration
}

// Encode returns the raw write frame for the command: the command word
// followed by each argument word and its CRC.
func (c Command) Encode(args []uint16) ([]byte, error) {
	if len(args) != c.ArgWords {
		return nil, &ArgumentCountError{Opcode: c.Opcode, Got: len(args), Want: c.ArgWords}
	}
	b := make([]byte, wordLen, wordLen+len(args)*frameLen)
	b[0] = byte(c.Opcode >> 8)
	b[1] = byte(c.Opcode)
	for _, w := range args {
		b = append(b, byte(w>>8), byte(w))
		b = append(b, CRC8(b[len(b)-wordLen:]))
	}
	return b, nil
}

// ReplyLen returns the raw reply size in bytes.
func (c Command) ReplyLen() int {
	return c.ReplyWords * frameLen
}

// DecodeWords verifies a raw reply of the given number of data words and
// unpacks it. The checksum of every word is verified before any data is
// returned; the first failing word wins.
func DecodeWords(raw []byte, words int) ([]uint16, error) {
	if len(raw) != words*frameLen {
		return nil, &ReplyLengthError{Got: len(raw), Want: words * frameLen}
	}
	out := make([]uint16, words)
	for ix := range out {
		frame := raw[ix*frameLen : (ix+1)*frameLen]
		if CRC8(frame[:wordLen]) != frame[wordLen] {
			return nil, &ChecksumError{Word: ix}
		}
		out[ix] = uint16(frame[0])<<8 | uint16(frame[1])
	}
	return out, nil
}
