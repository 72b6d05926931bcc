package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edutok-api/internal/config"
	"github.com/edutok-api/internal/domain"
	jwtinfra "github.com/edutok-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyConfig(t *testing.T, withPrivate bool) *config.Config {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	privPath := filepath.Join(dir, "private.pem")
	if withPrivate {
		privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
		require.NoError(t, os.WriteFile(privPath, privPEM, 0600))
	}
	return &config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour}
}

func TestRun_MintsServiceToken(t *testing.T) {
	cfg := keyConfig(t, true)
	var out bytes.Buffer

	require.NoError(t, run(cfg, []string{"-subject", "grades-service"}, &out))

	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	claims, err := p.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "grades-service", claims.UserID)
	assert.Equal(t, domain.RoleService, claims.Role)
}

func TestRun_RejectsUserRoles(t *testing.T) {
	err := run(keyConfig(t, true), []string{"-subject", "s1", "-role", domain.RoleStudent}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_RequiresSubject(t *testing.T) {
	err := run(keyConfig(t, true), nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "subject")
}

func TestRun_NeedsPrivateKey(t *testing.T) {
	var out bytes.Buffer
	err := run(keyConfig(t, false), []string{"-subject", "s1"}, &out)
	assert.ErrorContains(t, err, "sign")
	assert.Empty(t, out.String())
}
