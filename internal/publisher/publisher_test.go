package publisher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQoS(t *testing.T) {
	for _, q := range []int{0, 1, 2} {
		got, err := ValidateQoS(q)
		require.NoError(t, err)
		assert.Equal(t, QoS(q), got)
	}

	for _, q := range []int{-1, 3, 42} {
		_, err := ValidateQoS(q)
		var invalid *InvalidQoSError
		require.True(t, errors.As(err, &invalid), "qos=%d", q)
		assert.Equal(t, q, invalid.QoS)
	}
}

func TestValidateTopic(t *testing.T) {
	assert.ErrorIs(t, Validate("", AtMostOnce), ErrEmptyTopic)
	assert.NoError(t, Validate("telemetry/gas", ExactlyOnce))
}

func TestCredentialsTLS(t *testing.T) {
	assert.False(t, Credentials{Endpoint: "localhost", Port: 1883}.TLS())
	assert.True(t, Credentials{Cert: "a.pem", Key: "a.key"}.TLS())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), "telemetry/pressure", []byte(`{"value":1}`), AtLeastOnce))
	assert.Contains(t, buf.String(), "topic=telemetry/pressure")

	err := p.Publish(context.Background(), "telemetry/pressure", nil, QoS(5))
	var invalid *InvalidQoSError
	assert.True(t, errors.As(err, &invalid))
	assert.NoError(t, p.Close())
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	tok := &fakeToken{done: make(chan struct{}), err: err}
	close(tok.done)
	return tok
}

func (f *fakeToken) Wait() bool {
	<-f.done
	return true
}

func (f *fakeToken) WaitTimeout(d time.Duration) bool { return true }

func (f *fakeToken) Done() <-chan struct{} { return f.done }

func (f *fakeToken) Error() error { return f.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	messages     []published
	token        mqtt.Token
	connected    bool
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return f.token
}

func (f *fakeClient) IsConnected() bool { return f.connected }

func (f *fakeClient) Disconnect(quiesce uint) { f.disconnected = true }

func TestMQTTPublish(t *testing.T) {
	client := &fakeClient{token: completedToken(nil), connected: true}
	p := newMQTT(client, "pressure-sensor-a", time.Second, nil)

	err := p.Publish(context.Background(), "telemetry/pressure", []byte(`{"name":"pressure-sensor-a"}`), AtLeastOnce)
	require.NoError(t, err)
	require.Len(t, client.messages, 1)
	assert.Equal(t, "telemetry/pressure", client.messages[0].topic)
	assert.Equal(t, byte(1), client.messages[0].qos)

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTInvalidQoSFailsBeforeNetwork(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	p := newMQTT(client, "pressure-sensor-a", time.Second, nil)

	err := p.Publish(context.Background(), "telemetry/pressure", []byte(`{}`), QoS(3))
	var invalid *InvalidQoSError
	require.True(t, errors.As(err, &invalid))
	assert.Empty(t, client.messages)

	err = p.Publish(context.Background(), "", []byte(`{}`), AtMostOnce)
	assert.ErrorIs(t, err, ErrEmptyTopic)
	assert.Empty(t, client.messages)
}

func TestMQTTPublishFailure(t *testing.T) {
	brokerErr := errors.New("not connected")
	client := &fakeClient{token: completedToken(brokerErr)}
	p := newMQTT(client, "gas-sensor-a", time.Second, nil)

	err := p.Publish(context.Background(), "telemetry/gas", []byte(`{}`), AtMostOnce)
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTPublishTimeout(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	p := newMQTT(client, "gas-sensor-a", 20*time.Millisecond, nil)

	err := p.Publish(context.Background(), "telemetry/gas", []byte(`{}`), AtLeastOnce)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestMQTTPublishCancelled(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: make(chan struct{})}}
	p := newMQTT(client, "gas-sensor-a", 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, "telemetry/gas", []byte(`{}`), AtLeastOnce)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialMQTTRequiresClientID(t *testing.T) {
	_, err := DialMQTT(context.Background(), Credentials{Endpoint: "localhost", Port: 1883}, MQTTOptions{})
	assert.Error(t, err)
}

func TestDialMQTTGivesUpOnSilentBroker(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })
	go func() {
		var conns []net.Conn
		for {
			conn, err := lis.Accept()
			if err != nil {
				for _, c := range conns {
					c.Close()
				}
				return
			}
			conns = append(conns, conn)
		}
	}()

	addr := lis.Addr().(*net.TCPAddr)
	creds := Credentials{Endpoint: "127.0.0.1", Port: addr.Port, ClientID: "pressure-sensor-a"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = DialMQTT(ctx, creds, MQTTOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLoadTLSConfigMissingFiles(t *testing.T) {
	_, err := loadTLSConfig(Credentials{RootCA: "/nonexistent/root-CA.crt"})
	assert.Error(t, err)
}

func newFrameServer(t *testing.T) (*httptest.Server, <-chan Frame) {
	t.Helper()
	frames := make(chan Frame, 16)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			frames <- f
		}
	}))
	t.Cleanup(srv.Close)
	return srv, frames
}

func TestWebSocketPublish(t *testing.T) {
	srv, frames := newFrameServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	p, err := DialWebSocket(context.Background(), url, time.Second)
	require.NoError(t, err)
	defer p.Close()

	payload := []byte(`{"name":"gas-sensor-a","value":0,"units":"ppm"}`)
	require.NoError(t, p.Publish(context.Background(), "telemetry/gas", payload, AtLeastOnce))

	select {
	case f := <-frames:
		assert.Equal(t, "telemetry/gas", f.Topic)
		assert.Equal(t, AtLeastOnce, f.QoS)
		assert.JSONEq(t, string(payload), string(f.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestWebSocketRejectsInvalidPayload(t *testing.T) {
	srv, _ := newFrameServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	p, err := DialWebSocket(context.Background(), url, time.Second)
	require.NoError(t, err)
	defer p.Close()

	assert.Error(t, p.Publish(context.Background(), "telemetry/gas", []byte("not json"), AtMostOnce))

	var invalid *InvalidQoSError
	assert.True(t, errors.As(p.Publish(context.Background(), "telemetry/gas", []byte(`{}`), QoS(-1)), &invalid))
}
