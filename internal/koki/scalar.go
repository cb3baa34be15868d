package koki

import "fmt"

// Uint8 mirrors uint8_t.
type Uint8 uint8

func (v Uint8) String() string {
	return fmt.Sprintf("uint8 (%d)", uint8(v))
}

// Uint16 mirrors uint16_t.
type Uint16 uint16

func (v Uint16) String() string {
	return fmt.Sprintf("uint16 (%d)", uint16(v))
}
