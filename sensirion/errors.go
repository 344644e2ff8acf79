// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import "fmt"

// ChecksumError reports a reply word whose CRC check failed. Word is the
// zero-based index of the offending word within the reply.
type ChecksumError struct {
	Word int
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sensirion: invalid crc on word %d", e.Word)
}

// ReplyLengthError reports a raw reply whose size does not match the
// command's reply length.
type ReplyLengthError struct {
	Got, Want int
}

func (e *ReplyLengthError) Error() string {
	return fmt.Sprintf("sensirion: reply is %d bytes, expected %d", e.Got, e.Want)
}

// ArgumentCountError reports an Encode call with the wrong number of
// argument words for the command.
type ArgumentCountError struct {
	Opcode    uint16
	Got, Want int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("sensirion: command 0x%04x takes %d argument words, got %d", e.Opcode, e.Want, e.Got)
}
