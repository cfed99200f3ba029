package vm

import "encoding/binary"

// Little-endian helpers shared by the encoder and dispatch loop for
// reading/writing immediates, matching the teacher's uint32FromBytes/
// uint32ToBytes pair in vm/vm.go generalized to every width PZ supports.

func putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

func getUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func getUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func getUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
