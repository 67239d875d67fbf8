package dto

import (
	"strings"
	"testing"
)

func validApplicationConfig() ApplicationConfig {
	return ApplicationConfig{
		Application: ApplicationInfo{Name: "test-app", Version: "1.0.0"},
		Kafka: KafkaConfig{
			BootstrapServers: []string{"localhost:9092"},
			Consumer:         ConsumerConfig{GroupID: "g", Topics: []string{"t"}},
		},
		Pipeline: PipelineConfig{MaxBatchRows: 2000, Format: "parquet", FallbackFolder: "assorted"},
		Sink:     SinkConfig{Backend: "file", File: FileConfig{BasePath: "/tmp/x"}},
	}
}

func TestApplicationConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ApplicationConfig)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *ApplicationConfig) {},
			wantErr: false,
		},
		{
			name:    "missing application name",
			mutate:  func(c *ApplicationConfig) { c.Application.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing bootstrap servers",
			mutate:  func(c *ApplicationConfig) { c.Kafka.BootstrapServers = nil },
			wantErr: true,
		},
		{
			name:    "missing group id",
			mutate:  func(c *ApplicationConfig) { c.Kafka.Consumer.GroupID = "" },
			wantErr: true,
		},
		{
			name:    "zero max batch rows",
			mutate:  func(c *ApplicationConfig) { c.Pipeline.MaxBatchRows = 0 },
			wantErr: true,
		},
		{
			name:    "negative max batch rows",
			mutate:  func(c *ApplicationConfig) { c.Pipeline.MaxBatchRows = -1 },
			wantErr: true,
		},
		{
			name:    "missing sink backend",
			mutate:  func(c *ApplicationConfig) { c.Sink.Backend = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validApplicationConfig()
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestS3Config_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  S3Config
		wantErr string
	}{
		{
			name:   "valid",
			config: S3Config{Bucket: "b", Region: "us-east-1"},
		},
		{
			name:    "missing bucket",
			config:  S3Config{Region: "us-east-1"},
			wantErr: "bucket",
		},
		{
			name:    "missing region",
			config:  S3Config{Bucket: "b"},
			wantErr: "region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestAzureConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  AzureConfig
		wantErr bool
	}{
		{
			name:   "connection string",
			config: AzureConfig{ConnectionString: "UseDevelopmentStorage=true", Container: "c"},
		},
		{
			name:   "account name and key",
			config: AzureConfig{AccountName: "acct", AccountKey: "key", Container: "c"},
		},
		{
			name:    "account name without key",
			config:  AzureConfig{AccountName: "acct", Container: "c"},
			wantErr: true,
		},
		{
			name:    "no credentials",
			config:  AzureConfig{Container: "c"},
			wantErr: true,
		},
		{
			name:    "missing container",
			config:  AzureConfig{ConnectionString: "UseDevelopmentStorage=true"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileConfig_Validate(t *testing.T) {
	if err := (&FileConfig{BasePath: "/tmp/x"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&FileConfig{}).Validate(); err == nil {
		t.Error("Validate() expected error for empty base path")
	}
}
