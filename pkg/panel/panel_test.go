package panel

import (
	"encoding/json"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/uart.go/pkg/mqtt"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		value  uint32
		expect Segments
	}{
		{0, Segments{0xbf, 0x3f}},
		{7, Segments{0xb8, 0x3f}},
		{42, Segments{0xdb, 0x74}},
		{88, Segments{0xff, 0x7f}},
		{1234, Segments{0xf4, 0x79}},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.expect, Encode(tc.value), "value %d", tc.value)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	b, err := m.Buttons()
	require.NoError(t, err)
	require.Equal(t, Buttons(0), b)
	m.Press(BTN2)
	b, _ = m.Buttons()
	require.Equal(t, BTN2, b)
	require.NoError(t, m.Display(12))
	v, n := m.Value()
	require.Equal(t, uint32(12), v)
	require.Equal(t, 1, n)
}

type publishClient struct {
	paho.Client
	published [][]byte
	retained  bool
}

func (c *publishClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &paho.DummyToken{}
}

func (c *publishClient) Unsubscribe(...string) paho.Token {
	return &paho.DummyToken{}
}

func (c *publishClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if topic == "dev/"+TopicDisplay {
		c.published = append(c.published, payload.([]byte))
		c.retained = retained
	}
	return &paho.DummyToken{}
}

func TestRemote(t *testing.T) {
	client := &publishClient{}
	r := NewRemote(&mqtt.Queue{Client: client, TopicPrefix: "dev/"})

	r.handleButtons(TopicButtons, []byte("8\n"))
	b, err := r.Buttons()
	require.NoError(t, err)
	require.Equal(t, BTN3, b)
	r.handleButtons(TopicButtons, []byte("junk"))
	b, _ = r.Buttons()
	require.Equal(t, BTN3, b)

	require.NoError(t, r.Display(88))
	require.NoError(t, r.Display(88))
	require.NoError(t, r.Display(3))
	require.Len(t, client.published, 2)
	require.True(t, client.retained)
	var state DisplayState
	require.NoError(t, json.Unmarshal(client.published[0], &state))
	require.Equal(t, DisplayState{Value: 88, Segments: Encode(88)}, state)
	require.NoError(t, r.Close())
}
