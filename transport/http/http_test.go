package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/kafkaflow/transport"
	"github.com/drblury/kafkaflow/transport/transporttest"
)

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	defer func() { transport.DefaultRegistry = original }()

	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "http", caps.Name)
	assert.False(t, caps.CanConsume())
}

func TestTopicURL(t *testing.T) {
	assert.Equal(t, "http://h/replies", TopicURL("http://h/", "replies"))
	assert.Equal(t, "http://h/replies", TopicURL("http://h", "/replies"))
}

func TestBuildPostsToTopicURL(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body []byte
	)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	tr, err := Build(context.Background(), &transporttest.Config{HTTPPublisherURL: server.URL}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Nil(t, tr.Subscriber)

	require.NoError(t, tr.Publisher.Publish("replies", message.NewMessage("uuid", []byte("pong"))))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/replies", path)
	assert.Equal(t, []byte("pong"), body)
}
