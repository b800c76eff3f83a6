package devices

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegistry_Apply(t *testing.T) {
	r := NewRegistry()

	changed, err := r.Apply(StateMessage{EntityID: "light.desk", State: "off"})
	require.NoError(t, err)
	assert.True(t, changed, "new entity")

	changed, err = r.Apply(StateMessage{EntityID: "light.desk", State: "off"})
	require.NoError(t, err)
	assert.False(t, changed, "same state")

	changed, err = r.Apply(StateMessage{EntityID: "light.desk", State: "off", Attributes: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, changed, "empty attributes equal missing attributes")

	changed, err = r.Apply(StateMessage{EntityID: "light.desk", State: "off", Attributes: map[string]any{"brightness": 10.0}})
	require.NoError(t, err)
	assert.True(t, changed, "attribute changed")

	changed, err = r.Apply(StateMessage{EntityID: "light.desk", State: "on", Attributes: map[string]any{"brightness": 10.0}})
	require.NoError(t, err)
	assert.True(t, changed, "state changed")

	e, ok := r.Entity("light.desk")
	require.True(t, ok)
	assert.Equal(t, "on", e.State)
	assert.Equal(t, 10.0, e.Attributes["brightness"])
}

func TestRegistry_ApplyRemoved(t *testing.T) {
	r := NewRegistry()

	changed, err := r.Apply(StateMessage{EntityID: "switch.fan", Removed: true})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = r.Apply(StateMessage{EntityID: "switch.fan", State: "on"})
	require.NoError(t, err)
	changed, err = r.Apply(StateMessage{EntityID: "switch.fan", Removed: true})
	require.NoError(t, err)
	assert.True(t, changed)

	_, ok := r.Entity("switch.fan")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistry_ApplyInvalid(t *testing.T) {
	r := NewRegistry()

	_, err := r.Apply(StateMessage{State: "on"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = r.Apply(StateMessage{EntityID: "fan", State: "on"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := NewRegistry()
	attrs := map[string]any{"friendly_name": "Desk"}
	_, err := r.Apply(StateMessage{EntityID: "light.desk", State: "on", Attributes: attrs})
	require.NoError(t, err)

	attrs["friendly_name"] = "changed by caller"
	e, _ := r.Entity("light.desk")
	assert.Equal(t, "Desk", e.Attributes["friendly_name"])

	e.Attributes["friendly_name"] = "changed by reader"
	e, _ = r.Entity("light.desk")
	assert.Equal(t, "Desk", e.Attributes["friendly_name"])
}

func TestRegistry_EntitiesSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"switch.b", "light.z", "lock.a", "light.a"} {
		_, err := r.Apply(StateMessage{EntityID: id, State: "on"})
		require.NoError(t, err)
	}

	var ids []string
	for _, e := range r.Entities() {
		ids = append(ids, e.EntityID)
	}
	assert.Equal(t, []string{"light.a", "light.z", "lock.a", "switch.b"}, ids)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "home/state/+", StateTopic("home"))
	assert.Equal(t, "home/command/cover/open_cover", CommandTopic("home", "cover", "open_cover"))
}

// fakeToken is an already completed paho token.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	pahomqtt.Client
	connected  bool
	publishErr error
	published  []published
}

func (c *fakeClient) IsConnectionOpen() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) pahomqtt.Token {
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(c.publishErr)
}

func newTestBridge(t *testing.T, client pahomqtt.Client) *Bridge {
	return &Bridge{
		client:   client,
		registry: NewRegistry(),
		prefix:   "alexa-gateway",
		logger:   zaptest.NewLogger(t),
	}
}

func TestBridge_Call(t *testing.T) {
	client := &fakeClient{connected: true}
	b := newTestBridge(t, client)

	err := b.Call(context.Background(), "light", "turn_on", map[string]any{
		"entity_id":      "light.desk",
		"brightness_pct": 40,
	})
	require.NoError(t, err)

	require.Len(t, client.published, 1)
	assert.Equal(t, "alexa-gateway/command/light/turn_on", client.published[0].topic)
	assert.Equal(t, byte(1), client.published[0].qos)
	assert.JSONEq(t, `{"entity_id":"light.desk","brightness_pct":40}`, string(client.published[0].payload))
}

func TestBridge_CallErrors(t *testing.T) {
	b := newTestBridge(t, &fakeClient{})
	err := b.Call(context.Background(), "light", "turn_on", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	brokerErr := errors.New("not authorized")
	b = newTestBridge(t, &fakeClient{connected: true, publishErr: brokerErr})
	err = b.Call(context.Background(), "light", "turn_on", nil)
	assert.ErrorIs(t, err, brokerErr)
}

func TestBridge_HandleState(t *testing.T) {
	b := newTestBridge(t, &fakeClient{connected: true})

	var changes []string
	b.OnChange(func(entityID string) { changes = append(changes, entityID) })

	payload, err := json.Marshal(StateMessage{EntityID: "lock.front", State: "locked"})
	require.NoError(t, err)

	require.NoError(t, b.handleState("alexa-gateway/state/lock.front", payload))
	require.NoError(t, b.handleState("alexa-gateway/state/lock.front", payload))
	assert.Equal(t, []string{"lock.front"}, changes)

	require.NoError(t, b.handleState("alexa-gateway/state/switch.fan", []byte(`{"state":"on"}`)))
	e, ok := b.registry.Entity("switch.fan")
	require.True(t, ok, "entity id taken from topic")
	assert.Equal(t, "on", e.State)

	require.NoError(t, b.handleState("alexa-gateway/state/lock.front", []byte(`{"removed":true}`)))
	assert.Equal(t, []string{"lock.front", "switch.fan"}, changes)

	err = b.handleState("alexa-gateway/state/x", []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
