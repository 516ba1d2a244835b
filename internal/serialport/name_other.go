//go:build !windows

package serialport

func portName(name string) string {
	return name
}
