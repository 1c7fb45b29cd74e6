package kilgo

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

const GarageController = `{
	"Name": "Garage",
	"Id": 2,
	"Manufacturer": "Kilgo",
	"Model": "KG-200",
	"SerialNumber": "KG200-0042",
	"Firmware": "1.4.2",
	"Features": ["garage_door", "light", "color", "fade_rate", "lock", "battery", "motion", "temperature", "button"]
}`

func deviceFromJson(jstr string) *Device {
	dev := &Device{}
	err := json.Unmarshal([]byte(jstr), dev)
	if err != nil {
		panic(err)
	}
	return dev
}

func TestCreateAccessory(t *testing.T) {
	dev := deviceFromJson(GarageController)

	acc, props, err := createAccessory(dev)
	if err != nil {
		t.Fatal(err)
	}
	dumpAccessory(acc)

	if acc.Id != 2 {
		t.Errorf("accessory id should come from config, got %d", acc.Id)
	}
	if acc.Type != accessory.TypeGarageDoorOpener {
		t.Errorf("want garage door opener accessory, got type %d", acc.Type)
	}

	seen := make(map[string]bool)
	for _, p := range props {
		if seen[p.Property] {
			t.Errorf("duplicate property %s", p.Property)
		}
		seen[p.Property] = true
	}
	for _, p := range []string{"door", "target_door", "obstruction", "light", "brightness",
		"hue", "saturation", "fade_rate", "lock", "lock_target", "battery", "charging",
		"motion", "temperature", "action"} {
		if !seen[p] {
			t.Errorf("missing property %s", p)
		}
	}

	var kinds []ServiceKind
	for _, svc := range ServicesOf(acc) {
		if k := Classify(svc); k != KindUnknown {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) != 2 {
		t.Errorf("want a garage door and a light bulb, got %v", kinds)
	}
}

func TestCreateAccessoryLightOnly(t *testing.T) {
	acc, _, err := createAccessory(&Device{Name: "Porch", Id: 5, Features: []string{"light"}})
	if err != nil {
		t.Fatal(err)
	}
	if acc.Type != accessory.TypeLightbulb {
		t.Errorf("want light bulb accessory, got type %d", acc.Type)
	}
}

func TestCreateAccessoryErrors(t *testing.T) {
	for _, test := range []struct {
		dev  Device
		want error
	}{
		{Device{Id: 1, Features: []string{"light"}}, ErrMalformedDevice},
		{Device{Name: "x", Features: []string{"light"}}, ErrMalformedDevice},
		{Device{Name: "x", Id: 1, Features: []string{"sprinkler"}}, ErrUnknownFeature},
		{Device{Name: "x", Id: 1, Features: []string{"fade_rate"}}, ErrMalformedDevice},
	} {
		_, _, err := createAccessory(&test.dev)
		if !errors.Is(err, test.want) {
			t.Errorf("%+v: want %v, got %v", test.dev, test.want, err)
		}
	}
}

func TestMappingTranslation(t *testing.T) {
	s := service.NewGarageDoorOpener()
	m := NewPropertyMapping("door", s.CurrentDoorState.C, currentDoorTranslator)

	for _, test := range []struct{ p, c any }{
		{"open", characteristic.CurrentDoorStateOpen},
		{"closing", characteristic.CurrentDoorStateClosing},
		{"stopped", characteristic.CurrentDoorStateStopped},
	} {
		v, errCode := m.SetCharacteristicValue(test.p)
		t.Logf("payload = %+v, v = %+v", test.p, v)
		if errCode != 0 {
			t.Fatalf("cant set cvalue, err %d", errCode)
		}

		if i, _ := ValueOf(m.Characteristic.Val).Int(); i != int64(test.c.(int)) {
			t.Fatalf("characteristic value was wrong. wanted %v got %v", test.c, m.Characteristic.Val)
		}

		back, err := m.ToPayloadValue(m.Characteristic.Val)
		if err != nil || back != test.p {
			t.Fatalf("reverse: want %v, got %v (%v)", test.p, back, err)
		}
	}
	if _, errCode := m.SetCharacteristicValue("ajar"); errCode != -1 {
		t.Fatalf("expected translation error, but errCode was %d", errCode)
	}
}

func TestMappingOnOff(t *testing.T) {
	s := service.NewLightbulb()
	m := NewSettablePropertyMapping("light", s.On.C, onOffTranslator)

	for _, test := range []struct {
		p string
		c bool
	}{
		{"ON", true},
		{"OFF", false},
	} {
		if _, errCode := m.SetCharacteristicValue(test.p); errCode != 0 {
			t.Fatalf("%s: errCode %d", test.p, errCode)
		}
		if s.On.Value() != test.c {
			t.Fatalf("%s: want %v", test.p, test.c)
		}
		if p, _ := m.ToPayloadValue(test.c); p != test.p {
			t.Fatalf("%v: want %s, got %v", test.c, test.p, p)
		}
	}
}

func TestMappingNumeric(t *testing.T) {
	s := service.NewTemperatureSensor()
	m := NewPropertyMapping("temperature", s.CurrentTemperature.C, nil)

	for _, test := range []struct {
		v    any
		desc string
	}{
		{10.0, "temp 10.0"},
		{10.5, "temp 10.5"},
		{0.5, "temp 0.5"},
		{0., "temp 0"},
	} {
		_, errCode := m.SetCharacteristicValue(test.v)
		if errCode != 0 {
			t.Fatalf("errCode for %s: %d", test.desc, errCode)
		}
		cv := s.CurrentTemperature.Value()
		t.Logf("%s: ctemp %f", test.desc, cv)

		if test.v != cv {
			t.Fatalf("%s mismatch. want %f, got %f", test.desc, test.v, cv)
		}

		pv, err := m.ToPayloadValue(cv)
		if err != nil {
			t.Fatalf("err converting back %s: %v", test.desc, err)
		}

		if pv != test.v {
			t.Fatalf("%s reverse: want %f, got %f", test.desc, test.v, pv)
		}
	}
}
