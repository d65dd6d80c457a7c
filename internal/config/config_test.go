package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMustLoadPath_StoreCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/gcs.json")
	t.Setenv("FIRESTORE_CREDENTIALS_FILE", "/secrets/firestore.json")

	path := writeConfig(t, `
admin:
  email: "admin@example.com"
  session_secret: "secret"
object_store:
  driver: "gcs"
  bucket: "portfolio"
document_store:
  driver: "firestore"
  project_id: "ali-portfolio"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "/secrets/gcs.json", cfg.ObjectStore.CredentialsFile)
	assert.Equal(t, "/secrets/firestore.json", cfg.DocumentStore.CredentialsFile)
	assert.Equal(t, "ali-portfolio", cfg.DocumentStore.ProjectID)
	assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
}

func TestMustLoadPath_MissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
