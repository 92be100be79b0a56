package server

import (
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaultsAndOverrides(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), Timeouts{Write: 30 * time.Second})
	if srv.ReadTimeout != 10*time.Second || srv.IdleTimeout != 60*time.Second {
		t.Fatalf("defaults not applied: %+v", srv)
	}
	if srv.WriteTimeout != 30*time.Second {
		t.Fatalf("WriteTimeout = %v", srv.WriteTimeout)
	}
}
