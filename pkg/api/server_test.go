package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/HarxSan/Mini-Manus/pkg/actuator"
	"github.com/HarxSan/Mini-Manus/pkg/bus"
	"github.com/HarxSan/Mini-Manus/pkg/orchestrator"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

type fakeActuator struct {
	sessionID string
	execute   func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error)
}

func (f *fakeActuator) ID() string { return f.sessionID }

func (f *fakeActuator) Execute(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
	if f.execute != nil {
		return f.execute(ctx, task, maxSteps, ask)
	}
	return &actuator.Result{FinalOutput: "ok"}, nil
}

func (f *fakeActuator) Close() error { return nil }

type fakeRuntime struct {
	launchErr error
	execute   func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error)
}

func (f *fakeRuntime) Launch(ctx context.Context, opts actuator.LaunchOptions) (actuator.Actuator, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	return &fakeActuator{sessionID: opts.SessionID, execute: f.execute}, nil
}

func (f *fakeRuntime) Close() error { return nil }

type testService struct {
	server *httptest.Server
	bus    *bus.MemoryBus
}

func newTestService(t *testing.T, rt *fakeRuntime) *testService {
	t.Helper()

	eventBus := bus.NewMemoryBus()
	orch, err := orchestrator.New(orchestrator.Options{
		Store:           session.NewStore(),
		Runtime:         rt,
		Bus:             eventBus,
		MaxTaskDuration: time.Minute,
	})
	require.NoError(t, err)

	srv := NewServer(ServerConfig{
		Orchestrator: orch,
		EventBus:     eventBus,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		eventBus.Close()
	})
	return &testService{server: ts, bus: eventBus}
}

func (ts *testService) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (ts *testService) initSession(t *testing.T, id string) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"session_id": id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["session_id"].(string)
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})

	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_InitializeSession(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "initialized", body["status"])
	assert.NotEmpty(t, body["session_id"])
}

func TestServer_InitializeFailure(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{launchErr: actuator.ErrMissingCredentials})

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "initialization failed")
}

func TestServer_RunLifecycle(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{
		execute: func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
			return &actuator.Result{FinalOutput: "searched the web"}, nil
		},
	})
	id := ts.initSession(t, "")

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "search the web"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "task_started", body["status"])

	deadline := time.Now().Add(2 * time.Second)
	var status map[string]any
	for time.Now().Before(deadline) {
		resp, status = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/status", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		if status["state"] == string(session.StateCompleted) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, string(session.StateCompleted), status["state"])
	assert.Equal(t, "searched the web", status["last_result"])
	assert.Equal(t, false, status["is_running"])
}

func TestServer_RunUnknownSession(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions/ghost/run", map[string]any{"task": "anything"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "Initialize a browser first")
}

func TestServer_RunConflict(t *testing.T) {
	release := make(chan struct{})
	ts := newTestService(t, &fakeRuntime{
		execute: func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &actuator.Result{}, nil
		},
	})
	defer close(release)
	id := ts.initSession(t, "")

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "first"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "second"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestServer_RunRejectsEmptyTask(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})
	id := ts.initSession(t, "")

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_InputFlow(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{
		execute: func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
			answer, err := ask(ctx, "which city?")
			if err != nil {
				return nil, err
			}
			return &actuator.Result{FinalOutput: "weather in " + answer}, nil
		},
	})
	id := ts.initSession(t, "")

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "check the weather"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	deadline := time.Now().Add(2 * time.Second)
	var status map[string]any
	for time.Now().Before(deadline) {
		_, status = ts.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/status", nil)
		if status["needs_input"] == true {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, true, status["needs_input"])
	assert.Equal(t, "which city?", status["pending_question"])

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/input", map[string]string{"answer": "Berlin"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "input_provided", body["status"])

	// A second answer has nothing to resolve.
	resp, _ = ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/input", map[string]string{"answer": "Paris"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_InputWithoutQuestion(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})
	id := ts.initSession(t, "")

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/input", map[string]string{"answer": "hello?"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestServer_CloseSession(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})
	id := ts.initSession(t, "")

	resp, body := ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "closed", body["status"])

	resp, _ = ts.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_EventStream(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{
		execute: func(ctx context.Context, task string, maxSteps int, ask actuator.AskFunc) (*actuator.Result, error) {
			return &actuator.Result{FinalOutput: "streamed result"}, nil
		},
	})
	id := ts.initSession(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.server.URL, "http://", "ws://", 1) + "/api/v1/sessions/" + id + "/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	var first session.Event
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, session.EventConnected, first.Type)
	assert.Equal(t, id, first.SessionID)
	assert.Equal(t, string(session.StateCreated), string(first.Snapshot.State))

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/run", map[string]any{"task": "stream me"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var prev uint64
	sawComplete := false
	for !sawComplete {
		var ev session.Event
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		require.Greater(t, ev.Seq, prev, "push events must arrive in sequence order")
		prev = ev.Seq
		if ev.Type == session.EventTaskComplete {
			sawComplete = true
			assert.Equal(t, "streamed result", ev.Result)
		}
	}
}

func TestServer_EventStreamUnknownSession(t *testing.T) {
	ts := newTestService(t, &fakeRuntime{})

	resp, err := http.Get(ts.server.URL + "/api/v1/sessions/ghost/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWriteOperationError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{session.ErrTaskAlreadyRunning, http.StatusConflict},
		{session.ErrSessionExists, http.StatusConflict},
		{session.ErrNoPendingInput, http.StatusBadRequest},
		{session.ErrSessionClosed, http.StatusNotFound},
		{orchestrator.ErrInitializationFailed, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", session.ErrSessionNotFound), http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeOperationError(rec, tc.err)
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestServer_StreamWritesAreBounded(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsu := "ws" + strings.TrimPrefix(ts.URL, "http")
	peer, _, err := websocket.Dial(ctx, wsu, nil)
	require.NoError(t, err)
	defer peer.Close(websocket.StatusNormalClosure, "done")

	conn := <-conns

	// A frame write must give up when its context expires instead of
	// blocking on a peer that never reads.
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	err = writeFrame(expired, conn, session.Event{SessionID: "sess-1", Type: session.EventHeartbeat})
	require.Error(t, err)
}
