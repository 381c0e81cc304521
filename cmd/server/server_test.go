package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	stressdb "github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/load"
	"github.com/nickyhof/stressdb/ps"
)

const tableCSV = `Composition,Product,Spec No,Type/Grade,Class,Size/Tck,P-No.,Group No.,Tensile,Yield,Max Temp,Chart,Notes,40,100,200,300
Carbon steel,Plate,SA-516,60,,,1,1,415,220,540,CS-2,G10,118,118,118,108
Carbon steel,Plate,SA-516,70,,,1,2,485,260,540,CS-2,"G10, G5",138,138,136,126
Carbon steel,Pipe,SA-106,B,,,1,1,415,240,540,CS-2,,118,118,,
`

const notesCSV = `No,Type,Code,Page,Detail
1,General,G10,1,Upon prolonged exposure to temperatures above 425°C
`

func openTestInstance(t *testing.T) *stressdb.Instance {
	t.Helper()

	dir := t.TempDir()
	tablePath := filepath.Join(dir, "table.csv")
	notesPath := filepath.Join(dir, "notes.csv")
	if err := os.WriteFile(tablePath, []byte(tableCSV), 0o644); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}
	if err := os.WriteFile(notesPath, []byte(notesCSV), 0o644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	instance, err := stressdb.OpenWith(persistence, config.Default(), nil)
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	loader := &load.CSVLoader{TablePath: tablePath, NotesPath: notesPath}
	if _, err := instance.Import(context.Background(), "Table-1A", loader, identity); err != nil {
		t.Fatalf("Failed to import table: %v", err)
	}
	return instance
}

func setupTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	server := NewServer(openTestInstance(t), nil)
	if err := server.Start(":0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server, func() {
		server.Stop()
	}
}

func setupAuthTestServer(t *testing.T, authConfig *config.AuthConfig) (*Server, func()) {
	t.Helper()

	server := NewServerWithAuth(openTestInstance(t), authConfig, nil)
	if err := server.Start(":0"); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server, func() {
		server.Stop()
	}
}

// exchange writes one line and decodes the response line.
func exchange(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) Response {
	t.Helper()

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Failed to send %q: %v", line, err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("Failed to read response to %q: %v", line, err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		t.Fatalf("Failed to parse response %q: %v", data, err)
	}
	return resp
}

func dial(t *testing.T, server *Server) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", server.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	return conn, bufio.NewReader(conn)
}

func sendQuery(t *testing.T, server *Server, statement string) Response {
	t.Helper()

	conn, reader := dial(t, server)
	defer conn.Close()
	return exchange(t, conn, reader, statement)
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
	if server.TLSEnabled() {
		t.Error("Expected TLS to be disabled")
	}
}

func TestShowVariants(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server, "SHOW VARIANTS")
	if !resp.Success {
		t.Fatalf("Query failed: %s", resp.Error)
	}
	if resp.Type != "query" {
		t.Errorf("Expected query type, got: %s", resp.Type)
	}

	var qr QueryResponse
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if qr.Statement != "SHOW VARIANTS" {
		t.Errorf("Expected SHOW VARIANTS statement, got %s", qr.Statement)
	}
	if len(qr.Data) != 2 || qr.Data[0][0] != "Table-1A" {
		t.Errorf("Unexpected variants: %v", qr.Data)
	}
}

func TestSessionStatements(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn, reader := dial(t, server)
	defer conn.Close()

	resp := exchange(t, conn, reader, "USE Table-1A")
	if !resp.Success {
		t.Fatalf("USE failed: %s", resp.Error)
	}
	if resp.Type != "session" {
		t.Errorf("Expected session type, got: %s", resp.Type)
	}

	resp = exchange(t, conn, reader, "SELECT SpecNo = 'SA-516'")
	if !resp.Success {
		t.Fatalf("SELECT failed: %s", resp.Error)
	}
	var sr SessionResponse
	if err := json.Unmarshal(resp.Result, &sr); err != nil {
		t.Fatalf("Failed to parse session result: %v", err)
	}
	if sr.Variant != "Table-1A" {
		t.Errorf("Expected Table-1A, got %s", sr.Variant)
	}
	if sr.Selection["SpecNo"] != "SA-516" {
		t.Errorf("Expected SpecNo selection, got %v", sr.Selection)
	}
	if sr.Candidates != 2 {
		t.Errorf("Expected 2 candidates, got %d", sr.Candidates)
	}

	resp = exchange(t, conn, reader, "SHOW CURVE")
	if !resp.Success {
		t.Fatalf("SHOW CURVE failed: %s", resp.Error)
	}
	var qr QueryResponse
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if qr.Status != "ok" {
		t.Errorf("Expected ok status, got %s", qr.Status)
	}
	if len(qr.Data) != 4 || qr.Data[0][1] != "128" {
		t.Errorf("Unexpected curve: %v", qr.Data)
	}

	resp = exchange(t, conn, reader, "SELECT SpecNo = 'SA-999'")
	if !resp.Success {
		t.Fatalf("SELECT failed: %s", resp.Error)
	}
	resp = exchange(t, conn, reader, "INTERPOLATE 150")
	if !resp.Success {
		t.Fatalf("INTERPOLATE failed: %s", resp.Error)
	}
	qr = QueryResponse{}
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if qr.Status != "no candidates" {
		t.Errorf("Expected no candidates status, got %s", qr.Status)
	}
}

func TestQueryErrors(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server, "SHOW CURVE")
	if resp.Success {
		t.Error("Expected SHOW CURVE without a variant to fail")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = sendQuery(t, server, "INVALID SYNTAX HERE")
	if resp.Success {
		t.Error("Expected syntax error")
	}

	resp = sendQuery(t, server, "USE Table-3")
	if resp.Success {
		t.Error("Expected USE of a table that was never imported to fail")
	}
}

func TestPersistentConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	first, firstReader := dial(t, server)
	defer first.Close()
	second, secondReader := dial(t, server)
	defer second.Close()

	exchange(t, first, firstReader, "USE Table-1A")
	exchange(t, first, firstReader, "SELECT Product = 'Pipe'")

	// The second connection has its own session
	resp := exchange(t, second, secondReader, "SHOW SELECTION")
	if resp.Success {
		t.Error("Expected the second connection to have no variant")
	}

	resp = exchange(t, first, firstReader, "SHOW CANDIDATES")
	if !resp.Success {
		t.Fatalf("SHOW CANDIDATES failed: %s", resp.Error)
	}
	var qr QueryResponse
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	if len(qr.Data) != 1 {
		t.Errorf("Expected 1 candidate, got %d", len(qr.Data))
	}
}

func TestQuitClosesConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn, reader := dial(t, server)
	defer conn.Close()

	if _, err := conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := reader.ReadString('\n'); err == nil {
		t.Error("Expected connection to be closed after quit")
	}
}

// === Authentication Tests ===

func TestAuthRequired(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &config.AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	resp := sendQuery(t, server, "SHOW VARIANTS")
	if resp.Success {
		t.Fatal("Expected query to fail without authentication")
	}
	if !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected authentication required error, got: %s", resp.Error)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &config.AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	conn, reader := dial(t, server)
	defer conn.Close()

	token := createTestJWT(t, "test-secret", jwt.MapClaims{"name": "Test User", "email": "test@example.com"})
	resp := exchange(t, conn, reader, "AUTH JWT "+token)
	if !resp.Success {
		t.Fatalf("Auth failed: %s", resp.Error)
	}
	if resp.Type != "auth" {
		t.Errorf("Expected auth type, got: %s", resp.Type)
	}

	var ar AuthResponse
	if err := json.Unmarshal(resp.Result, &ar); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !ar.Authenticated {
		t.Error("Expected authenticated to be true")
	}
	if ar.Identity != "Test User <test@example.com>" {
		t.Errorf("Unexpected identity: %s", ar.Identity)
	}
	if ar.ExpiresIn <= 0 {
		t.Errorf("Expected positive expires_in, got %d", ar.ExpiresIn)
	}

	resp = exchange(t, conn, reader, "SHOW VARIANTS")
	if !resp.Success {
		t.Errorf("Query failed after auth: %s", resp.Error)
	}
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &config.AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	conn, reader := dial(t, server)
	defer conn.Close()

	wrongToken := createTestJWT(t, "wrong-secret", jwt.MapClaims{"name": "Test User", "email": "test@example.com"})
	resp := exchange(t, conn, reader, "AUTH JWT "+wrongToken)
	if resp.Success {
		t.Error("Expected auth to fail with wrong secret")
	}
	if resp.Error == "" {
		t.Error("Expected error message")
	}

	resp = exchange(t, conn, reader, "SHOW VARIANTS")
	if resp.Success {
		t.Error("Expected query to fail after failed auth")
	}
}

func TestAuthIssuerAndAudience(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "https://issuer.example.com",
		Audience:  "stressdb",
	})
	defer cleanup()

	conn, reader := dial(t, server)
	defer conn.Close()

	wrongIssuer := createTestJWT(t, "test-secret", jwt.MapClaims{
		"name": "Test User",
		"iss":  "https://other.example.com",
		"aud":  "stressdb",
	})
	if resp := exchange(t, conn, reader, "AUTH JWT "+wrongIssuer); resp.Success {
		t.Error("Expected auth to fail with wrong issuer")
	}

	valid := createTestJWT(t, "test-secret", jwt.MapClaims{
		"name": "Test User",
		"iss":  "https://issuer.example.com",
		"aud":  "stressdb",
	})
	if resp := exchange(t, conn, reader, "AUTH JWT "+valid); !resp.Success {
		t.Errorf("Auth failed: %s", resp.Error)
	}
}

func TestAuthMissingIdentityClaims(t *testing.T) {
	server, cleanup := setupAuthTestServer(t, &config.AuthConfig{Enabled: true, JWTSecret: "test-secret"})
	defer cleanup()

	token := createTestJWT(t, "test-secret", jwt.MapClaims{"sub": "1234"})
	resp := sendQuery(t, server, "AUTH JWT "+token)
	if resp.Success {
		t.Error("Expected auth to fail without name or email")
	}
}

func TestParseAuthCommand(t *testing.T) {
	authType, token, err := parseAuthCommand("auth jwt abc.def.ghi")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if authType != "JWT" || token != "abc.def.ghi" {
		t.Errorf("Unexpected parse result: %s %s", authType, token)
	}

	if _, _, err := parseAuthCommand("AUTH JWT"); err == nil {
		t.Error("Expected error for missing token")
	}
	if _, _, err := parseAuthCommand("AUTH BASIC user:pass"); err == nil {
		t.Error("Expected error for unsupported auth type")
	}
	if _, _, err := parseAuthCommand("SHOW VARIANTS"); err == nil {
		t.Error("Expected error for non-AUTH line")
	}
}

func TestConnectionStateExpired(t *testing.T) {
	now := time.Now()
	state := &ConnectionState{authenticated: true, tokenExpiry: now.Add(-time.Minute)}
	if !state.expired(now) {
		t.Error("Expected state to be expired")
	}

	state.tokenExpiry = time.Time{}
	if state.expired(now) {
		t.Error("Expected a token without expiry to never expire")
	}
}

// createTestJWT signs claims with HS256 and a one hour expiry.
func createTestJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to create test JWT: %v", err)
	}
	return tokenString
}

// === TLS Tests ===

func setupTLSTestServer(t *testing.T) (*Server, string, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "cert.pem")
	keyFile := filepath.Join(tmpDir, "key.pem")
	generateTestCertificate(t, certFile, keyFile)

	server := NewServer(openTestInstance(t), nil)
	if err := server.StartTLS(":0", certFile, keyFile); err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}
	return server, certFile, func() {
		server.Stop()
	}
}

// generateTestCertificate creates a self-signed certificate for testing
func generateTestCertificate(t *testing.T, certFile, keyFile string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(time.Hour),
		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:    []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
}

func TestTLSServerConnection(t *testing.T) {
	server, certFile, cleanup := setupTLSTestServer(t)
	defer cleanup()

	if !server.TLSEnabled() {
		t.Error("Expected TLS to be enabled")
	}

	certPool := x509.NewCertPool()
	certData, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("Failed to read cert: %v", err)
	}
	certPool.AppendCertsFromPEM(certData)

	tlsConfig := &tls.Config{
		RootCAs:    certPool,
		ServerName: "localhost",
	}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err != nil {
		t.Fatalf("Failed to connect with TLS: %v", err)
	}
	defer conn.Close()

	resp := exchange(t, conn, bufio.NewReader(conn), "SHOW VARIANTS")
	if !resp.Success {
		t.Errorf("Query failed: %s", resp.Error)
	}
}

func TestTLSServerInvalidCert(t *testing.T) {
	server, _, cleanup := setupTLSTestServer(t)
	defer cleanup()

	// System roots do not include the self-signed certificate
	tlsConfig := &tls.Config{ServerName: "localhost"}
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 2 * time.Second}, "tcp", server.Addr(), tlsConfig)
	if err == nil {
		conn.Close()
		t.Error("Expected TLS connection to fail with invalid certificate")
	}
}
