package sink

import (
	"strings"
	"testing"
)

func TestNewS3Sink_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  S3Config
		wantErr string
	}{
		{
			name:    "missing bucket",
			config:  S3Config{Region: "us-east-1"},
			wantErr: "bucket",
		},
		{
			name:    "missing region",
			config:  S3Config{Bucket: "segments"},
			wantErr: "region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Sink(tt.config, testLogger(), nil)
			if err == nil {
				t.Fatal("NewS3Sink() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewS3Sink() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewGCSSink_MissingBucket(t *testing.T) {
	if _, err := NewGCSSink(GCSConfig{}, testLogger(), nil); err == nil {
		t.Error("NewGCSSink() expected error for missing bucket")
	}
}

func TestNewAzureSink_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config AzureConfig
	}{
		{
			name:   "missing container",
			config: AzureConfig{ConnectionString: "UseDevelopmentStorage=true"},
		},
		{
			name:   "malformed connection string",
			config: AzureConfig{Container: "segments", ConnectionString: "not-a-connection-string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAzureSink(tt.config, testLogger(), nil); err == nil {
				t.Error("NewAzureSink() expected error")
			}
		})
	}
}
