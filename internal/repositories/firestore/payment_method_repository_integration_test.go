//go:build integration

package firestore

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/nutriform/api/internal/domain"
	pconfig "github.com/nutriform/api/internal/platform/config"
	pfirestore "github.com/nutriform/api/internal/platform/firestore"
)

func TestPaymentMethodRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "wallet-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewPaymentMethodRepository(provider)
	if err != nil {
		t.Fatalf("new payment method repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const customerID = "cust-wallet-1"

	// The first saved card is promoted to default even when not requested.
	// This path reads the active set and the default holders inside the
	// insert transaction, so it fails fast if a read sneaks after a write.
	first, err := repo.Insert(ctx, customerID, domain.PaymentMethod{
		CardLastFour:   "4242",
		CardBrand:      "visa",
		CardExpMonth:   12,
		CardExpYear:    2030,
		CardholderName: "Ada Lovelace",
	})
	if err != nil {
		t.Fatalf("insert first card: %v", err)
	}
	if !first.IsDefault {
		t.Fatalf("expected first card to become default, got %+v", first)
	}

	// An explicit default demotes the previous holder in the same transaction.
	second, err := repo.Insert(ctx, customerID, domain.PaymentMethod{
		CardLastFour:   "1881",
		CardBrand:      "mastercard",
		CardExpMonth:   6,
		CardExpYear:    2031,
		CardholderName: "Ada Lovelace",
		IsDefault:      true,
	})
	if err != nil {
		t.Fatalf("insert second card: %v", err)
	}
	if !second.IsDefault {
		t.Fatalf("expected second card to be default, got %+v", second)
	}
	assertSingleDefault(t, ctx, repo, customerID, second.ID)

	// Switching back clears the current holder transactionally.
	switched, err := repo.SetDefault(ctx, customerID, first.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !switched.IsDefault {
		t.Fatalf("expected switched card to be default, got %+v", switched)
	}
	assertSingleDefault(t, ctx, repo, customerID, first.ID)

	// Soft delete drops the card from listings without touching the default.
	if err := repo.Deactivate(ctx, customerID, second.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	methods, err := repo.List(ctx, customerID)
	if err != nil {
		t.Fatalf("list after deactivate: %v", err)
	}
	if len(methods) != 1 || methods[0].ID != first.ID {
		t.Fatalf("expected only the first card to remain, got %+v", methods)
	}
}

func assertSingleDefault(t *testing.T, ctx context.Context, repo *PaymentMethodRepository, customerID, wantID string) {
	t.Helper()
	methods, err := repo.List(ctx, customerID)
	if err != nil {
		t.Fatalf("list payment methods: %v", err)
	}
	var defaults []string
	for _, m := range methods {
		if m.IsDefault {
			defaults = append(defaults, m.ID)
		}
	}
	if len(defaults) != 1 || defaults[0] != wantID {
		t.Fatalf("expected %s to be the only default, got %v", wantID, defaults)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
