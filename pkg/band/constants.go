package band

// Bluetooth SIG assigned numbers.
const (
	HEALTH_THERMOMETER_SERVICE             = 0x1809
	HEALTH_THERMOMETER_CHARACTERISTIC_TEMP = 0x2A1C
)

// Band vendor service and its characteristics.
const (
	BAND_SERVICE                      = "a1c0f000-5a7e-4c2b-9d1e-7b3f0e6d2c41"
	BAND_CHARACTERISTIC_CONTROL_POINT = "a1c0f001-5a7e-4c2b-9d1e-7b3f0e6d2c41"
	BAND_CHARACTERISTIC_TILE_CAPACITY = "a1c0f002-5a7e-4c2b-9d1e-7b3f0e6d2c41"
	BAND_CHARACTERISTIC_ACCELEROMETER = "a1c0f003-5a7e-4c2b-9d1e-7b3f0e6d2c41"
)

// Control point opcodes.
const (
	OPCODE_ADD_TILE     byte = 0x01
	OPCODE_REMOVE_TILE  byte = 0x02
	OPCODE_SEND_MESSAGE byte = 0x03
)

const (
	// FRAME_HEADER_SIZE is the opcode byte plus the little-endian payload length.
	FRAME_HEADER_SIZE = 3
	// ATT_HEADER_SIZE is subtracted from the MTU to get the usable write size.
	ATT_HEADER_SIZE = 3
	// ACCELEROMETER_SAMPLE_SIZE is three little-endian int16 axes.
	ACCELEROMETER_SAMPLE_SIZE = 6
)

// Icon sizes accepted by the band.
const (
	TILE_ICON_SIZE  = 46
	SMALL_ICON_SIZE = 24
)
