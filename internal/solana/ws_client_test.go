package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer upgrades the connection and hands each request to handle.
func wsServer(t *testing.T, handle func(c *websocket.Conn, req wsRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}
			handle(c, req)
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SignatureSubscribe(t *testing.T) {
	server := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		if req.Method != "signatureSubscribe" {
			t.Errorf("expected signatureSubscribe, got %s", req.Method)
		}

		// subscription id 0 is valid
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 0})
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": 0,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 5207624},
					"value":   map[string]interface{}{"err": nil},
				},
			},
		})
	})
	defer server.Close()

	client := NewWSClient(wsURL(server), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.SignatureSubscribe(ctx, "sig")
	if err != nil {
		t.Fatalf("SignatureSubscribe: %v", err)
	}

	select {
	case res := <-ch:
		if res.Err != nil || res.ConnErr != nil {
			t.Fatalf("unexpected error result %+v", res)
		}
		if res.Slot != 5207624 {
			t.Errorf("expected slot 5207624, got %d", res.Slot)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSConfirmer_TransactionError(t *testing.T) {
	server := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 7})
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"value": map[string]interface{}{"err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
				},
			},
		})
	})
	defer server.Close()

	client := NewWSClient(wsURL(server), nil)
	defer client.Close()

	err := NewWSConfirmer(client).Confirm(context.Background(), "sig")
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
}

func TestWSClient_ConnectionLost(t *testing.T) {
	server := wsServer(t, func(c *websocket.Conn, req wsRequest) {
		c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 1})
		c.Close()
	})
	defer server.Close()

	client := NewWSClient(wsURL(server), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.SignatureSubscribe(ctx, "sig")
	if err != nil {
		t.Fatalf("SignatureSubscribe: %v", err)
	}

	select {
	case res := <-ch:
		if !errors.Is(res.ConnErr, ErrConnectionLost) {
			t.Fatalf("expected ErrConnectionLost, got %+v", res)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for connection loss")
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", nil)
	defer client.Close()

	if _, err := client.SignatureSubscribe(context.Background(), "sig"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWSClient_Close(t *testing.T) {
	client := NewWSClient("ws://127.0.0.1:1", nil)

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Second close should be no-op
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := client.SignatureSubscribe(context.Background(), "sig"); err == nil {
		t.Fatal("expected error after close")
	}
}
