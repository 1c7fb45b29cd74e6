package kilgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/brutella/hap/characteristic"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const DeviceTemplate = `
		{
		"Name": "garage%[1]d",
		"Id": %[1]d,
		"Features": ["garage_door", "light"]
		}`

type publishedMsg struct {
	topic    string
	retained bool
	payload  []byte
}

// records publishes, all other methods are unimplemented
type fakeMqttClient struct {
	mqtt.Client
	published []publishedMsg
}

func (c *fakeMqttClient) IsConnected() bool { return true }

func (c *fakeMqttClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.published = append(c.published, publishedMsg{topic, retained, payload.([]byte)})
	return nil
}

func (c *fakeMqttClient) last(suffix string) *publishedMsg {
	for i := len(c.published) - 1; i >= 0; i-- {
		if strings.HasSuffix(c.published[i].topic, suffix) {
			return &c.published[i]
		}
	}
	return nil
}

func devicesFromJson(t *testing.T, ids ...int) []Device {
	var parts []string
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(DeviceTemplate, id))
	}

	var devs []Device
	if err := json.Unmarshal([]byte("["+strings.Join(parts, ",")+"]"), &devs); err != nil {
		t.Fatal(err)
	}
	return devs
}

func newTestBridge(t *testing.T, dir string, ids ...int) *Bridge {
	b := NewBridge(context.Background(), dir)
	if err := b.AddDevices(devicesFromJson(t, ids...)); err != nil {
		t.Fatalf("cannot add devices: %v", err)
	}
	return b
}

func TestBridgePersistState(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := newTestBridge(t, dir, 10, 20)

	// empty state, should have no errors
	t.Logf("loading from empty db")
	if err := b.RestoreState(); err != nil {
		t.Errorf("empty state load should not error: %v", err)
	}

	b.UpdateAccessoryState("garage10", []byte(`{"door": "stopped", "light": "ON", "brightness": 254}`))

	// save 2 devices
	t.Logf("persisting state")
	if err := b.saveState(); err != nil {
		t.Errorf("can't persist state: %v", err)
	}

	// re-create with less devices
	b2 := newTestBridge(t, dir, 10)

	t.Logf("loading from initial db")
	if err := b2.RestoreState(); err != nil {
		t.Errorf("load err: %v", err)
	}

	door := b2.devices["garage10"].Mappings["door"].Characteristic
	if v, _ := ValueOf(door.Val).Int(); v != int64(characteristic.CurrentDoorStateStopped) {
		t.Errorf("door state not restored, got %v", door.Val)
	}
	light := b2.devices["garage10"].Mappings["light"].Characteristic
	if light.Val != true {
		t.Errorf("light state not restored, got %v", light.Val)
	}

	t.Logf("persisting state")
	if err := b2.saveState(); err != nil {
		t.Errorf("can't persist state: %v", err)
	}

	// reload from smaller-sized state
	t.Logf("re-loading from db")
	if err := b2.RestoreState(); err != nil {
		t.Errorf("load err: %v", err)
	}
}

func TestBridgeDuplicateDevice(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := NewBridge(context.Background(), dir)
	if err := b.AddDevices(devicesFromJson(t, 1, 1)); err == nil {
		t.Fatalf("adding the same device twice should fail")
	}
}

func TestBridgeUpdateAndStatus(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := newTestBridge(t, dir, 7)
	client := &fakeMqttClient{}
	b.mqttClient = client

	b.UpdateAccessoryState("garage7", []byte(`{"door": "opening", "obstruction": true, "last_seen": "2024-05-01T10:00:00Z"}`))

	dev := b.devices["garage7"]
	if dev.LastSeen.Year() != 2024 {
		t.Errorf("last_seen not applied: %v", dev.LastSeen)
	}

	msg := client.last("/status")
	if msg == nil {
		t.Fatalf("no status published")
	}
	if msg.topic != "kilgo/garage7/status" || !msg.retained {
		t.Errorf("unexpected status publish %s retained=%v", msg.topic, msg.retained)
	}

	var report []ServiceStatus
	if err := json.Unmarshal(msg.payload, &report); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range report {
		if st.Kind == "garage_door" {
			found = true
			if st.State != "Opening" || st.Icon != IconDoorOpening || st.Asset != "door-opening.png" {
				t.Errorf("door status %+v", st)
			}
		}
	}
	if !found {
		t.Errorf("no garage door in status %s", msg.payload)
	}

	// unknown devices and broken payloads are ignored
	b.UpdateAccessoryState("shed", []byte(`{"door": "open"}`))
	b.UpdateAccessoryState("garage7", []byte(`{"door": `))
}

func TestBridgeToggle(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := newTestBridge(t, dir, 3)
	client := &fakeMqttClient{}
	b.mqttClient = client

	b.UpdateAccessoryState("garage3", []byte(`{"door": "closed", "target_door": "closed", "light": "OFF"}`))

	if err := b.Toggle("garage3", "garage_door"); err != nil {
		t.Fatal(err)
	}
	msg := client.last("/set")
	if msg == nil || msg.topic != "kilgo/garage3/set" || string(msg.payload) != `{"target_door":"open"}` {
		t.Fatalf("unexpected command %+v", msg)
	}

	target := b.devices["garage3"].Mappings["target_door"].Characteristic
	if v, _ := ValueOf(target.Val).Int(); v != int64(characteristic.TargetDoorStateOpen) {
		t.Errorf("target door state not updated, got %v", target.Val)
	}

	if err := b.Toggle("garage3", "light_bulb"); err != nil {
		t.Fatal(err)
	}
	if msg := client.last("/set"); string(msg.payload) != `{"light":"ON"}` {
		t.Errorf("unexpected command %s", msg.payload)
	}

	if err := b.Toggle("garage9", ""); err == nil {
		t.Errorf("toggling an unknown device should fail")
	}
	if err := b.Toggle("garage3", "lock"); err == nil {
		t.Errorf("toggling an invalid kind should fail")
	}
}

func TestBridgeToggleFirstControllable(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := NewBridge(context.Background(), dir)
	b.mqttClient = &fakeMqttClient{}
	if err := b.AddDevices([]Device{{Name: "porch", Id: 4, Features: []string{"light", "motion"}}}); err != nil {
		t.Fatal(err)
	}

	if err := b.Toggle("porch", ""); err != nil {
		t.Fatal(err)
	}
	if on := b.devices["porch"].Mappings["light"].Characteristic.Val; on != true {
		t.Errorf("light should be on, got %v", on)
	}

	b2 := NewBridge(context.Background(), dir)
	b2.mqttClient = &fakeMqttClient{}
	if err := b2.AddDevices([]Device{{Name: "shed", Id: 5, Features: []string{"motion"}}}); err != nil {
		t.Fatal(err)
	}
	if err := b2.Toggle("shed", ""); err != ErrNotControllable {
		t.Errorf("want ErrNotControllable, got %v", err)
	}
}

func TestBridgeRemoteWrite(t *testing.T) {
	dir, err := os.MkdirTemp("", "kilgo-bridge*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b := newTestBridge(t, dir, 5)
	client := &fakeMqttClient{}
	b.mqttClient = client

	light := b.devices["garage5"].Mappings["light"].Characteristic
	req := httptest.NewRequest("PUT", "/characteristics", nil)

	// writes from HomeKit wait for MQTT updates in progress
	b.mu.Lock()
	done := make(chan struct{})
	go func() {
		light.SetValueRequest(true, req)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("remote write finished while devices were locked")
	case <-time.After(50 * time.Millisecond):
	}
	b.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("remote write did not complete")
	}

	if msg := client.last("/set"); msg == nil || string(msg.payload) != `{"light":"ON"}` {
		t.Errorf("unexpected command %+v", msg)
	}

	msg := client.last("/status")
	if msg == nil {
		t.Fatalf("no status published")
	}
	var report []ServiceStatus
	if err := json.Unmarshal(msg.payload, &report); err != nil {
		t.Fatal(err)
	}
	for _, st := range report {
		if st.Kind == "light_bulb" && (st.State != "On" || st.Asset != "bulb-on.png") {
			t.Errorf("light status %+v", st)
		}
	}
}
