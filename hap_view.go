package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// Wraps a hap characteristic. The value is read from C.Val on every call.
type HAPCharacteristic struct{ C *characteristic.C }

func (h HAPCharacteristic) Type() string { return h.C.Type }
func (h HAPCharacteristic) Value() Value { return ValueOf(h.C.Val) }

// Wraps a hap service
type HAPService struct{ S *service.S }

func (h HAPService) Type() string { return h.S.Type }

func (h HAPService) Characteristics() []Characteristic {
	cs := make([]Characteristic, len(h.S.Cs))
	for i, c := range h.S.Cs {
		cs[i] = HAPCharacteristic{c}
	}
	return cs
}

func ServiceOf(s *service.S) Service { return HAPService{s} }

// Returns views for all services of the accessory, in order
func ServicesOf(acc *accessory.A) []Service {
	var svcs []Service
	for _, s := range acc.Ss {
		svcs = append(svcs, HAPService{s})
	}
	return svcs
}

// Returns the underlying hap characteristic, if c wraps one
func UnwrapHAP(c Characteristic) (*characteristic.C, bool) {
	h, ok := c.(HAPCharacteristic)
	if !ok {
		return nil, false
	}
	return h.C, true
}
