package panel

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/uart.go/pkg/mqtt"
)

// Topics used by Remote, relative to the queue prefix.
const (
	TopicButtons = "panel/buttons"
	TopicDisplay = "panel/display"
)

// DisplayState is the retained payload published on TopicDisplay.
type DisplayState struct {
	Value    uint32   `json:"value"`
	Segments Segments `json:"segments"`
}

// Remote is a panel over MQTT. Button state arrives as a decimal bitmask
// on TopicButtons; the display is published when the value changes.
type Remote struct {
	Queue *mqtt.Queue

	lock    sync.Mutex
	buttons Buttons
	shown   *uint32
	sub     *mqtt.Subscription
}

// NewRemote creates a Remote on q and subscribes the button topic.
func NewRemote(q *mqtt.Queue) *Remote {
	r := &Remote{Queue: q}
	r.sub = q.Sub(TopicButtons, r.handleButtons)
	return r
}

func (r *Remote) handleButtons(topic string, payload []byte) {
	val, err := strconv.ParseUint(strings.TrimSpace(string(payload)), 0, 8)
	if err != nil {
		glog.Warningf("panel: bad buttons payload %q: %v", payload, err)
		return
	}
	r.lock.Lock()
	r.buttons = Buttons(val)
	r.lock.Unlock()
}

// Buttons returns the last reported button state.
func (r *Remote) Buttons() (Buttons, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.buttons, nil
}

// Display publishes value when it differs from the last one published.
func (r *Remote) Display(value uint32) error {
	r.lock.Lock()
	if r.shown != nil && *r.shown == value {
		r.lock.Unlock()
		return nil
	}
	r.shown = &value
	r.lock.Unlock()
	payload, err := json.Marshal(&DisplayState{Value: value, Segments: Encode(value)})
	if err != nil {
		return err
	}
	r.Queue.PubWith(TopicDisplay, payload, 0, true)
	return nil
}

// Close drops the button subscription.
func (r *Remote) Close() error {
	return r.sub.Close()
}
