package protocol

// FrameLen is the size of a request frame on the wire.
const FrameLen = 2

// EncodeFrame serializes a request: zone first, then opcode.
func EncodeFrame(zone, opcode uint8) [FrameLen]byte {
	return [FrameLen]byte{zone, opcode}
}
