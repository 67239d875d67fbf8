package kafka

import (
	"strings"
	"testing"
)

func TestXDGSCRAMClient_Begin(t *testing.T) {
	tests := []struct {
		name   string
		client *XDGSCRAMClient
	}{
		{"sha256", &XDGSCRAMClient{HashGeneratorFcn: SHA256}},
		{"sha512", &XDGSCRAMClient{HashGeneratorFcn: SHA512}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.client.Begin("testuser", "testpass", ""); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			if tt.client.Client == nil {
				t.Error("Begin() should initialize the SCRAM client")
			}
			if tt.client.ClientConversation == nil {
				t.Error("Begin() should start a conversation")
			}
			if tt.client.Done() {
				t.Error("conversation should not be done before any step")
			}
		})
	}
}

func TestXDGSCRAMClient_FirstStep(t *testing.T) {
	client := &XDGSCRAMClient{HashGeneratorFcn: SHA256}
	if err := client.Begin("testuser", "testpass", ""); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// The client-first message carries the username and a nonce.
	response, err := client.Step("")
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if !strings.Contains(response, "n=testuser") {
		t.Errorf("client-first message = %q, want username attribute", response)
	}
	if !strings.Contains(response, "r=") {
		t.Errorf("client-first message = %q, want nonce attribute", response)
	}
}

func TestSHA256HashGenerator(t *testing.T) {
	h := SHA256()
	h.Write([]byte("test data"))
	if got := len(h.Sum(nil)); got != 32 {
		t.Errorf("SHA-256 hash length = %d, want 32", got)
	}
}

func TestSHA512HashGenerator(t *testing.T) {
	h := SHA512()
	h.Write([]byte("test data"))
	if got := len(h.Sum(nil)); got != 64 {
		t.Errorf("SHA-512 hash length = %d, want 64", got)
	}
}
