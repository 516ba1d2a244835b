package serialport

import "strings"

// devicePrefix is the Win32 device namespace; the serial library adds it itself.
const devicePrefix = `\\.\`

// portName strips a user supplied device prefix so that high COM numbers
// (COM10 and above) are opened as \\.\COMnn exactly once.
func portName(name string) string {
	return strings.TrimPrefix(name, devicePrefix)
}
