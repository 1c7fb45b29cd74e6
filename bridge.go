package kilgo

import (
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"

	haplog "github.com/brutella/hap/log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"crypto/tls"
	"net/url"

	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"
)

var (
	ErrDeviceExists             = fmt.Errorf("device already exists")
	ErrDuplicatePropertyMapping = fmt.Errorf("duplicate property name in mappings")
	ErrUnknownDevice            = fmt.Errorf("unknown device")
	ErrAlreadyConnected         = fmt.Errorf("already connected")
)

const (
	MQTT_TOPIC_PREFIX = "kilgo/"

	// Store name for persisting device state
	KILGO_STATE_STORE = "kilgo_state"

	// Store name for server PIN code
	KILGO_PIN_STORE = "kilgo_pin"

	// timeout for marking devices as non-responsive
	LAST_SEEN_TIMEOUT = 24 * time.Hour
)

// show more messages for developers
const BRIDGE_DEVMODE = false

type Bridge struct {
	// MQTT broker and credentials
	Server   string
	Username string
	Password string

	// prefix of all MQTT topics, must end with a /
	TopicPrefix string

	// address and interfaces to bind to
	ListenAddr string
	Interfaces []string

	DebugMode bool
	QuietMode bool

	ctx       context.Context
	bridgeAcc *accessory.Bridge

	// mu protects devices, and the characteristic values of their accessories
	mu      sync.RWMutex
	devices map[string]*BridgeDevice

	server *hap.Server
	store  hap.Store
	pin    string

	mqttClient mqtt.Client
}

type BridgeDevice struct {
	Device    *Device
	Accessory *accessory.A
	Mappings  map[string]*PropertyMapping
	LastSeen  time.Time
}

// Creates and initializes a Bridge.
func NewBridge(ctx context.Context, storeDir string) *Bridge {
	br := &Bridge{
		TopicPrefix: MQTT_TOPIC_PREFIX,

		ctx:     ctx,
		store:   hap.NewFsStore(storeDir),
		devices: make(map[string]*BridgeDevice),
	}

	br.bridgeAcc = accessory.NewBridge(accessory.Info{
		Name:         "Kilgo Bridge",
		Manufacturer: "Kilgo",
	})

	return br
}

// Sets the PIN code for the HAP server.
// If the given pin is empty, it will be read from the store, or failing that,
// one will be generated
func (br *Bridge) SetPin(pin string) (string, error) {
	// if PIN was not explicitly specified, we re-use the existing one from store
	if pin == "" {
		if storePin, err := br.store.Get(KILGO_PIN_STORE); err == nil {
			pin = string(storePin)
		}
	}

	savePin := pin == ""

	if pin == "" {
		for {
			rnd, err := rand.Int(rand.Reader, big.NewInt(99999999+1))
			if err != nil {
				return "", fmt.Errorf("can't generate PIN: %v", err)
			}

			// pad if necessary
			pin = rnd.Text(10) + "00000000"
			pin = pin[:8]

			// ensure it's not an insecure PIN
			if !hap.InvalidPins[pin] {
				break
			}
		}
	} else if hap.InvalidPins[pin] {
		return "", fmt.Errorf("insecure pin %s", pin)
	}

	// persist the PIN
	if savePin {
		br.store.Set(KILGO_PIN_STORE, []byte(pin))
	}

	br.pin = pin
	return pin, nil
}

// Returns the PIN
func (br *Bridge) GetPin() string { return br.pin }

// Initializes the hap.Server and calls ListenAndServe().
// ListenAndServe() will block until the context is cancelled
func (br *Bridge) StartHAP() error {
	if br.bridgeAcc == nil {
		return fmt.Errorf("bridge accessory not created yet")
	}

	// initialize PIN, either from store or dynamically generated
	if br.pin == "" {
		if _, err := br.SetPin(""); err != nil {
			return err
		}
	}

	br.mu.RLock()
	acc := br.accessories()
	br.mu.RUnlock()

	if len(acc) == 0 {
		return fmt.Errorf("no devices added to bridge")
	}

	var err error
	br.server, err = hap.NewServer(br.store, br.bridgeAcc.A, acc...)
	if err != nil {
		return err
	}

	br.server.Pin = br.pin

	br.server.Addr = br.ListenAddr
	br.server.Ifaces = br.Interfaces

	if br.DebugMode {
		haplog.Debug.Enable()
	}

	err = br.server.ListenAndServe(br.ctx)

	// disconnect from MQTT
	if br.mqttClient != nil {
		br.mqttClient.Disconnect(1000)
	}

	// flush device state to disk
	if err := br.saveState(); err != nil {
		log.Printf("cannot persist device state: %s", err)
	}

	return err
}

// Return number of devices added to the bridge.
func (br *Bridge) NumDevices() int {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return len(br.devices)
}

// Connects to the MQTT server.
// Blocks until the connection is established, then auto-reconnect logic takes over
func (br *Bridge) ConnectMQTT() error {
	if br.mqttClient != nil && br.mqttClient.IsConnected() {
		return ErrAlreadyConnected
	}

	opts := mqtt.NewClientOptions().
		AddBroker(br.Server).
		SetUsername(br.Username).
		SetPassword(br.Password).
		SetClientID("kilgo-bridge").
		SetDialer(&net.Dialer{KeepAlive: -1}).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(2 * time.Second).
		SetConnectRetry(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("connected to MQTT broker")

		tok := c.Subscribe(br.TopicPrefix+"#", 0, br.handleMqttMessage)
		if tok.Wait() && tok.Error() != nil {
			log.Fatal(tok.Error())
		}

		log.Printf("subscribed to MQTT topic")

		// statuses published while disconnected were dropped
		br.mu.RLock()
		defer br.mu.RUnlock()
		for _, dev := range br.devices {
			if err := br.PublishStatus(dev); err != nil {
				log.Printf("cannot publish status for %s: %v", dev.Device.Name, err)
			}
		}
	})

	opts.SetConnectionAttemptHandler(func(broker *url.URL, cfg *tls.Config) *tls.Config {
		log.Printf("connecting to MQTT %s...", broker)
		return cfg
	})

	br.mqttClient = mqtt.NewClient(opts)

	if tok := br.mqttClient.Connect(); tok.Wait() && tok.Error() != nil {
		return tok.Error()
	}

	return nil
}

// Restores device state from hap.Store, as persisted during the last shutdown.
// If the state was blank or not found, a nil error will be returned.
// Devices that have already received an update are left untouched.
func (br *Bridge) RestoreState() error {
	state, err := br.store.Get(KILGO_STATE_STORE)
	if err != nil || len(state) == 0 {
		return nil
	}

	var stateMap map[string]json.RawMessage
	err = json.Unmarshal(state, &stateMap)
	if err != nil {
		return err
	}

	br.mu.Lock()
	defer br.mu.Unlock()

	for name, devState := range stateMap {
		if BRIDGE_DEVMODE {
			log.Printf("%s %s\n", name, devState)
		}

		dev := br.devices[name]
		if dev == nil {
			log.Printf("skipping %s, no longer configured", name)
			continue
		}
		if !dev.LastSeen.IsZero() {
			log.Printf("skipping %s, newer data is available", name)
			continue
		}

		br.updateAccessoryState(dev, devState)
	}

	return nil
}

// Persists device state into hap.Store
// Returns an error if there was a problem with translation, serialization or storing.
func (br *Bridge) saveState() error {
	br.mu.RLock()
	defer br.mu.RUnlock()

	devices := make(map[string]json.RawMessage)

	for name, dev := range br.devices {
		devState := make(map[string]any)

		for prop, mapping := range dev.Mappings {
			// don't bother persisting property if it is "zero"
			cv := mapping.Characteristic.Val
			if cv == nil || reflect.ValueOf(cv).IsZero() {
				continue
			}

			v, err := mapping.ToPayloadValue(cv)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", name, prop, err)
			}

			devState[prop] = v
		}

		if len(devState) == 0 {
			continue
		}

		// serialize into JSON
		// a device never heard from is saved as stale, so HomeKit keeps reporting it as unreachable
		lastSeen := dev.LastSeen
		if lastSeen.IsZero() {
			lastSeen = time.Now().Add(-LAST_SEEN_TIMEOUT)
		}
		devState["last_seen"] = lastSeen.UnixMilli() // timestamp in millis

		jsonState, err := json.Marshal(devState)
		if err != nil {
			return err
		}

		devices[name] = jsonState
	}

	// return early if there was nothing to persist
	if len(devices) == 0 {
		return nil
	}

	allJson, err := json.Marshal(devices)
	if err != nil {
		return err
	}

	return br.store.Set(KILGO_STATE_STORE, allJson)
}

func (br *Bridge) handleMqttMessage(_ mqtt.Client, msg mqtt.Message) {
	topic, payload := msg.Topic(), msg.Payload()

	// check for topic prefix and remove it
	topic, found := strings.CutPrefix(topic, br.TopicPrefix)
	if !found || topic == "" {
		return
	}

	// strip leading slashes if we have to
	topic = strings.TrimPrefix(topic, "/")

	devName, action, _ := strings.Cut(topic, "/")

	// spawn a goroutine to handle message, since mutex might block
	go func() {
		if br.DebugMode {
			log.Printf("received %s: %s", topic, payload)
		}

		switch action {
		case "":
			br.UpdateAccessoryState(devName, payload)

		case "toggle":
			if err := br.Toggle(devName, strings.TrimSpace(string(payload))); err != nil {
				log.Printf("cannot toggle %s: %v", devName, err)
			}

		default:
			// "set" and "status" are our own messages
		}
	}()
}

// Gets a list of all added accessories
func (br *Bridge) accessories() []*accessory.A {
	var acc []*accessory.A
	for _, d := range br.devices {
		acc = append(acc, d.Accessory)
	}
	return acc
}

// Creates accessories for all devices and adds them to the bridge
func (br *Bridge) AddDevices(devices []Device) error {
	for _, dev := range devices {
		dev := dev // make a copy

		acc, mappings, err := createAccessory(&dev)
		if err != nil {
			return fmt.Errorf("device %q: %w", dev.Name, err)
		}

		err = br.AddDevice(&dev, acc, mappings)
		if err != nil {
			return fmt.Errorf("device %q: %w", dev.Name, err)
		}
	}

	return nil
}

// Adds a device to this Bridge
func (br *Bridge) AddDevice(dev *Device, acc *accessory.A, mappings []*PropertyMapping) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	name := dev.Name
	if _, exists := br.devices[name]; exists {
		return ErrDeviceExists
	}

	// put PropertyMapping into a map
	pm := make(map[string]*PropertyMapping)
	for _, m := range mappings {
		if _, exists := pm[m.Property]; exists {
			return ErrDuplicatePropertyMapping
		}
		pm[m.Property] = m
	}

	brdev := &BridgeDevice{dev, acc, pm, time.Time{}}

	// wire up accessory's remote value update functions
	for _, m := range mappings {
		m := m
		if m.Settable {
			m.Characteristic.SetValueRequestFunc = func(newVal any, req *http.Request) (any, int) {
				// handle remote value updates only
				if req != nil {
					if err := br.publishProperty(dev, m, newVal); err != nil {
						log.Printf("error updating %s.%s: %s", dev.Name, m.Property, err)
						return nil, hap.JsonStatusServiceCommunicationFailure
					}
				}
				return nil, 0
			}
		}

		m.Characteristic.ValueRequestFunc = func(req *http.Request) (any, int) {
			errCode := 0
			if time.Since(brdev.LastSeen) >= LAST_SEEN_TIMEOUT {
				errCode = hap.JsonStatusServiceCommunicationFailure
			}
			return m.Characteristic.Val, errCode
		}
	}

	// every value change re-derives the state shown in the UI
	for _, s := range acc.Ss {
		for _, c := range s.Cs {
			c.OnCValueUpdate(func(c *characteristic.C, newVal, oldVal any, req *http.Request) {
				if BRIDGE_DEVMODE {
					log.Printf("%s: ctyp %s %v -> %v", name, c.Type, oldVal, newVal)
				}
				// local updates come in with mu already held
				if req != nil {
					br.mu.RLock()
					defer br.mu.RUnlock()
				}
				if err := br.PublishStatus(brdev); err != nil {
					log.Printf("cannot publish status for %s: %v", name, err)
				}
			})
		}
	}

	br.devices[name] = brdev
	return nil
}

// Publishes a characteristic value change to the device as a payload property
func (br *Bridge) publishProperty(dev *Device, mapping *PropertyMapping, newVal any) error {
	pVal, err := mapping.ToPayloadValue(newVal)
	if err != nil {
		return err
	}

	if br.DebugMode {
		log.Printf("updating %s %q -> %+v", dev.Name, mapping.Property, pVal)
	}
	return br.PublishState(dev, map[string]any{mapping.Property: pVal})
}

// Toggles the primary control of a device, like tapping its tile in the app.
// kindName selects the service ("light_bulb", "garage_door"); if empty, the
// first controllable service is used.
func (br *Bridge) Toggle(devName, kindName string) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	dev := br.devices[devName]
	if dev == nil {
		return fmt.Errorf("%w %q", ErrUnknownDevice, devName)
	}

	want := KindUnknown
	if kindName != "" {
		k, ok := ParseServiceKind(kindName)
		if !ok || k == KindUnknown {
			return fmt.Errorf("invalid service kind %q", kindName)
		}
		want = k
	}

	for _, svc := range ServicesOf(dev.Accessory) {
		kind := Classify(svc)
		if kind == KindUnknown || (want != KindUnknown && kind != want) {
			continue
		}

		ctrl, newVal, err := ToggleValue(svc)
		if err != nil {
			continue
		}

		c, _ := UnwrapHAP(ctrl)
		mapping := dev.mappingFor(c)
		if mapping == nil {
			return fmt.Errorf("no property for ctyp %s", c.Type)
		}

		if err := br.publishProperty(dev.Device, mapping, newVal); err != nil {
			return err
		}

		if _, errCode := c.SetValueRequest(newVal, nil); errCode != 0 {
			return fmt.Errorf("cannot set ctyp %s: %d", c.Type, errCode)
		}

		if !br.QuietMode {
			log.Printf("toggled %s %s", devName, kind)
		}
		return nil
	}

	return ErrNotControllable
}

func (d *BridgeDevice) mappingFor(c *characteristic.C) *PropertyMapping {
	for _, m := range d.Mappings {
		if m.Characteristic == c {
			return m
		}
	}
	return nil
}

// Publish to the MQTT broker for the specific device
func (br *Bridge) PublishState(dev *Device, payload map[string]any) error {
	topic := br.TopicPrefix + dev.Name + "/set"
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if br.DebugMode {
		log.Printf("publishing %s: %s", topic, jsonPayload)
	}

	if br.mqttClient == nil {
		return fmt.Errorf("not connected to MQTT")
	}
	br.mqttClient.Publish(topic, 0, false, jsonPayload)
	return nil
}

// Publishes the derived state of all services of the device, retained.
// Does nothing until MQTT is connected.
func (br *Bridge) PublishStatus(dev *BridgeDevice) error {
	if br.mqttClient == nil || !br.mqttClient.IsConnected() {
		return nil
	}

	jsonPayload, err := json.Marshal(StatusOf(ServicesOf(dev.Accessory)))
	if err != nil {
		return err
	}

	topic := br.TopicPrefix + dev.Device.Name + "/status"
	if br.DebugMode {
		log.Printf("publishing %s: %s", topic, jsonPayload)
	}

	br.mqttClient.Publish(topic, 0, true, jsonPayload)
	return nil
}

// Handle MQTT message to update accessory state
func (br *Bridge) UpdateAccessoryState(devName string, payload []byte) {
	br.mu.Lock()
	defer br.mu.Unlock()

	dev := br.devices[devName]
	if dev == nil {
		if br.DebugMode || BRIDGE_DEVMODE {
			log.Printf("unknown device %q", devName)
		}

		// skip unknown device
		return
	}

	if br.DebugMode || (!br.QuietMode && time.Since(dev.LastSeen) > 30*time.Second) {
		log.Printf("received update for device %q", devName)
	}

	br.updateAccessoryState(dev, payload)
}

// br.mu must be held for writing
func (br *Bridge) updateAccessoryState(dev *BridgeDevice, payload []byte) {
	var newState map[string]any
	err := json.Unmarshal(payload, &newState)
	if err != nil {
		log.Printf("unable to parse JSON payload: %v", err)
		return
	}

	lastSeen := time.Now()
	if lastSeenProp, found := newState["last_seen"]; found {
		switch v := lastSeenProp.(type) {
		case float64:
			lastSeen = time.UnixMilli(int64(v))
		case string:
			if lastSeenDate, err := time.Parse(time.RFC3339, v); err == nil {
				lastSeen = lastSeenDate
			} else {
				log.Printf("invalid last_seen timestamp %v", v)
			}
		default:
			log.Printf("invalid last_seen %T %[1]v", v)
		}
	}

	// update LastSeen only if it was valid
	if lastSeen.After(dev.LastSeen) {
		dev.LastSeen = lastSeen
	}

	for prop, mapping := range dev.Mappings {
		newVal, exists := newState[prop]
		if !exists {
			continue
		}

		// update value into Characteristic
		if BRIDGE_DEVMODE {
			log.Printf("updating %q to %+v", prop, newVal)
		}
		_, errCode := mapping.SetCharacteristicValue(newVal)
		if errCode != 0 {
			log.Printf("unable to update characteristic value for %q: %d", prop, errCode)
		}
	}
}
