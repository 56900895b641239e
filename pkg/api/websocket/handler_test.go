package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/eduvid/internal/application/publisher"
	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/pkg/adapters/metrics"
	storage "github.com/aescanero/eduvid/pkg/adapters/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type registryReader struct {
	registry *storage.Registry
}

func (r registryReader) GetStatus(ctx context.Context, taskID string) (*domain.Task, error) {
	return r.registry.Get(ctx, taskID)
}

func setup(t *testing.T) (*httptest.Server, *publisher.Publisher, *storage.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	registry := storage.NewRegistry(logger)
	pub := publisher.NewPublisher(registry, nil, metrics.Nop{}, logger)
	task := domain.NewTask("t1", domain.GenerationRequest{ConceptName: "c", Domain: "d"}, time.Now())
	require.NoError(t, registry.Create(context.Background(), task))

	router := gin.New()
	router.GET("/ws/tasks/:id", NewHandler(pub, registryReader{registry}, logger).HandleTaskStream)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, pub, registry
}

func dial(t *testing.T, srv *httptest.Server, taskID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tasks/" + taskID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readUpdate(t *testing.T, conn *websocket.Conn) domain.StatusUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var u domain.StatusUpdate
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func waitBound(t *testing.T, pub *publisher.Publisher, taskID string) {
	t.Helper()
	require.Eventually(t, func() bool { return pub.Bound(taskID) }, 5*time.Second, 10*time.Millisecond)
}

func TestHandleTaskStream(t *testing.T) {
	srv, pub, _ := setup(t)

	conn, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	defer conn.Close()

	snapshot := readUpdate(t, conn)
	assert.Equal(t, domain.TaskStateQueued, snapshot.State)
	waitBound(t, pub, "t1")

	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, domain.StatusUpdate{
		TaskID: "t1", State: domain.TaskStateProcessing, Progress: 0, Message: "Starting video generation", Timestamp: time.Now(),
	}))
	require.NoError(t, pub.Publish(ctx, domain.StatusUpdate{
		TaskID: "t1", State: domain.TaskStateProcessing, Progress: 20, Message: "Retrieved concept knowledge", Timestamp: time.Now(),
	}))
	require.NoError(t, pub.Publish(ctx, domain.StatusUpdate{
		TaskID: "t1", State: domain.TaskStateCancelled, Progress: 20, Message: "Video generation cancelled", Timestamp: time.Now(),
	}))

	assert.Equal(t, 0, readUpdate(t, conn).Progress)
	assert.Equal(t, 20, readUpdate(t, conn).Progress)
	assert.Equal(t, domain.TaskStateCancelled, readUpdate(t, conn).State)

	// the server closes the stream after a terminal update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	assert.False(t, pub.Bound("t1"))
}

func TestHandleTaskStream_TerminalTask(t *testing.T) {
	srv, _, registry := setup(t)
	require.NoError(t, registry.Apply(context.Background(), domain.StatusUpdate{
		TaskID: "t1", State: domain.TaskStateFailed, Progress: domain.ProgressFailed, Message: "Error: boom", Timestamp: time.Now(),
	}))

	conn, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	defer conn.Close()

	u := readUpdate(t, conn)
	assert.Equal(t, domain.TaskStateFailed, u.State)
	assert.Equal(t, "Error: boom", u.Message)
}

func TestHandleTaskStream_UnknownTask(t *testing.T) {
	srv, _, _ := setup(t)

	_, resp, err := dial(t, srv, "missing")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleTaskStream_ClientDisconnectUnbinds(t *testing.T) {
	srv, pub, _ := setup(t)

	conn, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	readUpdate(t, conn)
	waitBound(t, pub, "t1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !pub.Bound("t1") }, 5*time.Second, 10*time.Millisecond)
}
