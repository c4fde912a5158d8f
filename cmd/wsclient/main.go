// Command wsclient streams a WAV file (or a synthesized test tone) to the
// voice capture service over WebSocket and prints server replies.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"voice-capture-service/internal/audio"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:8080/v1/ws", "WebSocket endpoint")
	audioFile := flag.String("audio", "", "Path to WAV file; empty synthesizes a 2s speech-band tone")
	segments := flag.Int("segments", 1, "Number of segments to send")
	flag.Parse()

	var data []byte
	if *audioFile != "" {
		b, err := os.ReadFile(*audioFile)
		if err != nil {
			log.Fatalf("Failed to read audio file: %v", err)
		}
		if !audio.HasMagic(b) {
			log.Fatal("Not a valid WAV file")
		}
		data = b
	} else {
		samples := audio.Tone(1000, 0.8, 2.0, 16000)
		data = audio.EncodeWAV(samples, 16000)
		log.Printf("Synthesized 2s 1kHz tone: %d bytes", len(data))
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.Dial(*serverAddr, nil)
	if err != nil {
		log.Fatalf("Failed to dial %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	for i := 0; i < *segments; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
		log.Printf("Sent segment %d (%d bytes)", i+1, len(data))

		// Each segment produces a receipt plus one terminal message.
		for j := 0; j < 2; j++ {
			conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				log.Fatalf("Read failed: %v", err)
			}
			var pretty map[string]any
			if err := json.Unmarshal(payload, &pretty); err != nil {
				log.Printf("<- %s", payload)
				continue
			}
			log.Printf("<- %v", pretty)
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
