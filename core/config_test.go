package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("dev", func(t *testing.T) {
		t.Setenv("ENV", "")
		conf := NewConfig()
		assert.Equal(t, "DEV", conf.Env)
		assert.True(t, conf.Debug)
		assert.Equal(t, devSecretKey, conf.SecretKey)
		assert.NoError(t, conf.RequireSecretKey())
		assert.Equal(t, []BackendConfig{
			{Name: "express", Label: "Express", URL: "http://localhost:3000"},
			{Name: "node", Label: "Node", URL: "http://localhost:3001"},
		}, conf.Backends)
	})

	t.Run("prod without secret key", func(t *testing.T) {
		t.Setenv("ENV", "prod")
		t.Setenv("PROD_DEBUG", "false")
		conf := NewConfig()
		assert.False(t, conf.Debug)
		assert.Empty(t, conf.SecretKey)
		err := conf.RequireSecretKey()
		assert.True(t, errors.Is(err, errNoSecretKey))
		assert.Contains(t, err.Error(), "PROD_SECRETKEY")
	})

	t.Run("prod with secret key", func(t *testing.T) {
		t.Setenv("ENV", "prod")
		t.Setenv("PROD_DEBUG", "false")
		t.Setenv("PROD_SECRETKEY", "s3cr3t")
		t.Setenv("PROD_BACKEND_NODE_URL", "http://node.test")
		conf := NewConfig()
		assert.Equal(t, "s3cr3t", conf.SecretKey)
		assert.NoError(t, conf.RequireSecretKey())
		if bc, ok := conf.Backend("node"); assert.True(t, ok) {
			assert.Equal(t, "http://node.test", bc.URL)
		}
	})
}

func TestConfig_RequireSecretKey(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{name: "debug", conf: Config{Debug: true}},
		{name: "test mode", conf: Config{TestMode: true, SecretKey: devSecretKey}},
		{name: "set", conf: Config{Env: "QA", SecretKey: "s3cr3t"}},
		{name: "empty", conf: Config{Env: "QA"}, wantErr: true},
		{name: "development key", conf: Config{Env: "PROD", SecretKey: devSecretKey}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.conf.RequireSecretKey(); (err != nil) != tt.wantErr {
				t.Errorf("RequireSecretKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
