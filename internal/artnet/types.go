package artnet

// ArtConf структура конфигурации приёма.
type ArtConf struct {
	Listen   string // Listen - адрес UDP, по умолчанию :6454.
	Network  string // Network - CIDR сети Art-Net, если нужно выбрать интерфейс.
	Universe uint16 // Universe: старший байт - Net, младший байт - SubUni.
}

// Output is the part of the DMX encoder fed by Art-Net.
type Output interface {
	SetRange(start int, vals []byte) error
	Send() error
}
