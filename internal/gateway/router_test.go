package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-capture-service/internal/models"
	"voice-capture-service/internal/transcribe"
	"voice-capture-service/internal/transcribe/mock"
)

func newTestServer(t *testing.T) (*httptest.Server, *testEnv) {
	t.Helper()
	engine := mock.New(transcribe.Result{
		Text: "let's meet tomorrow at 9am", Language: "en", LanguageProbability: 0.9, Duration: 2.0,
	})
	env := newTestEnv(t, engine, nil)
	g := New(env.pipeline, zerolog.Nop())
	srv := httptest.NewServer(g.Router())
	t.Cleanup(srv.Close)
	return srv, env
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestIngestEndpointAcceptsUpload(t *testing.T) {
	srv, env := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/ingest?filename=note.wav", "audio/wav", bytes.NewReader(speechWAV()))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var body struct {
		Status   string `json:"status"`
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "received" || body.ID == "" || body.Filename != "note.wav" {
		t.Errorf("response = %+v", body)
	}

	// Processing continues after the acknowledgment; wait for the terminal
	// status.
	deadline := time.Now().Add(5 * time.Second)
	for {
		a, err := env.store.GetArtifact(context.Background(), body.ID)
		if err == nil && a.Status.IsTerminal() {
			if a.Status != models.IngestStatusProcessed {
				t.Fatalf("terminal status = %q, want processed", a.Status)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("segment never reached a terminal status")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestEndpointRejectsInvalidUpload(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/ingest", "audio/wav", strings.NewReader("not audio at all"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Check  string `json:"check"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "rejected" || body.Check != "signature" {
		t.Errorf("response = %+v", body)
	}
}

func TestWebSocketSegmentFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, speechWAV()); err != nil {
		t.Fatalf("write segment: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ack models.ReceivedMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != models.MessageTypeReceived || ack.ID == "" {
		t.Fatalf("ack = %+v", ack)
	}

	var result models.TranscriptionMessage
	if err := conn.ReadJSON(&result); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if result.Type != models.MessageTypeTranscription {
		t.Fatalf("result type = %q, want transcription", result.Type)
	}
	if result.ID != ack.ID {
		t.Errorf("result id = %q, ack id = %q", result.ID, ack.ID)
	}
	if result.Text != "let's meet tomorrow at 9am" {
		t.Errorf("text = %q", result.Text)
	}
	if !result.DeleteAudio {
		t.Error("delete_audio not set on transcription message")
	}
}

func TestWebSocketAudioEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	env := models.AudioEnvelope{
		Type: "audio",
		Data: base64.StdEncoding.EncodeToString(speechWAV()),
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ack models.ReceivedMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != models.MessageTypeReceived {
		t.Fatalf("ack type = %q", ack.Type)
	}
}

func TestWebSocketRejectsMalformedEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"audio","data":"%%%not-base64%%%"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg models.ErrorMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != models.MessageTypeError {
		t.Fatalf("type = %q, want error", msg.Type)
	}
}
