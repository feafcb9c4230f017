package vault

import (
	"context"
	"testing"

	"autobot-go/internal/config"
)

func TestNewS3Vault_RequiresBucket(t *testing.T) {
	_, err := NewS3Vault(context.Background(), config.VaultConfig{Type: "s3", Name: "offsite"})
	if err == nil {
		t.Fatal("NewS3Vault() error = nil without s3_bucket")
	}
}

func TestS3Vault_ObjectKey(t *testing.T) {
	t.Setenv("AUTOBOT_S3_ACCESS_KEY_ID", "test")
	t.Setenv("AUTOBOT_S3_SECRET_ACCESS_KEY", "test")

	v, err := NewS3Vault(context.Background(), config.VaultConfig{
		Type:       "s3",
		Name:       "offsite",
		S3Bucket:   "images",
		S3Prefix:   "autobot",
		S3Region:   "us-east-1",
		S3Endpoint: "http://127.0.0.1:9000",
	})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "archive/2024/general/bob/bob-0.png", want: "autobot/archive/2024/general/bob/bob-0.png"},
		{key: "/archive/2024/x.png.age", want: "autobot/archive/2024/x.png.age"},
		{key: "../escape.png", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := v.objectKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("objectKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("objectKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	v.prefix = ""
	if got, _ := v.objectKey("archive/a.png"); got != "archive/a.png" {
		t.Errorf("objectKey() without prefix = %q, want archive/a.png", got)
	}
}
