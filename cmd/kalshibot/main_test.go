package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KALSHI_ENV", "KALSHI_BASE_URL", "KALSHI_KEY_ID", "KALSHI_KEY_FILE",
		"KALSHI_DB", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func writeKey(t *testing.T, dir string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	path := filepath.Join(dir, "kalshi.pem")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_InvalidConfigExitsWithError(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, 1, run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Equal(t, 2, run([]string{"-no-such-flag"}))
}

func TestRun_FailedCycleReleasesResources(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")
	metricsAddr := freeAddr(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
kalshi:
  base_url: %s/trade-api/v2
  key_id: key-123
  key_file: %s
storage:
  dsn: %s
metrics:
  addr: %s
`, srv.URL, writeKey(t, dir), dbPath, metricsAddr)), 0o600))

	assert.Equal(t, 1, run([]string{"-once", "-config", cfgPath}))

	// el servidor de métricas se cerró: el puerto vuelve a estar libre
	ln, err := net.Listen("tcp", metricsAddr)
	require.NoError(t, err)
	ln.Close()

	// el journal se creó y se cerró limpiamente
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var cycles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cycles`).Scan(&cycles))
	assert.Zero(t, cycles)
}
