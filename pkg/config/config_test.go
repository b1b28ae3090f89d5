package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_CONN_STR", "postgres://localhost/photowall")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("STORAGE_BACKEND", "local")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.DuplicateThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.SubmissionCooldown)
	assert.Equal(t, 90*24*time.Hour, cfg.RejectedRetention)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, StorageLocal, cfg.StorageBackend)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("POSTGRES_CONN_STR", "")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_StorageBackendValidation(t *testing.T) {
	setRequired(t)

	t.Setenv("STORAGE_BACKEND", "ftp")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "Firebase")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "/etc/firebase.json")
	t.Setenv("FIREBASE_STORAGE_BUCKET", "photowall.appspot.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageFirebase, cfg.StorageBackend)
}

func TestIsModeratorEmail(t *testing.T) {
	setRequired(t)
	t.Setenv("MODERATOR_EMAILS", " Admin@Example.com , ,mod@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsModeratorEmail("admin@example.com"))
	assert.True(t, cfg.IsModeratorEmail("MOD@example.com "))
	assert.False(t, cfg.IsModeratorEmail("someone@example.com"))
	assert.Len(t, cfg.ModeratorEmails, 2)
}
