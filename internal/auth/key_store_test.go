package auth

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestKeyStoreStaticKeys(t *testing.T) {
	store, err := NewKeyStore("", []string{" alpha ", "", "alpha", "beta"}, time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	if !store.IsValidKey("alpha") || !store.IsValidKey("beta") {
		t.Fatalf("expected static keys to be valid")
	}
	if store.IsValidKey("gamma") {
		t.Fatalf("unexpected key accepted")
	}
	if store.IsValidKey("") || store.IsValidKey("   ") {
		t.Fatalf("expected empty key to be rejected")
	}
	if store.IsValidKey("alph") || store.IsValidKey("alphaa") {
		t.Fatalf("expected prefix and suffix variants to be rejected")
	}
}

func TestKeyStoreLoadsAndWatchesKeys(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "keys.txt")
	writeKeyFile(t, file, "alpha\n")

	store, err := NewKeyStore(file, []string{"static"}, 20*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	if !store.IsValidKey("alpha") {
		t.Fatalf("expected initial key to be valid")
	}
	if !store.IsValidKey("static") {
		t.Fatalf("expected static key to be valid alongside file keys")
	}
	if store.IsValidKey("beta") {
		t.Fatalf("unexpected key accepted")
	}

	writeKeyFile(t, file, "alpha\n\n beta \n")
	waitForKey(t, store, "beta", true)

	writeKeyFile(t, file, "beta\n")
	waitForKey(t, store, "alpha", false)

	if !store.IsValidKey("static") {
		t.Fatalf("expected static key to survive reload")
	}
}

func TestKeyStoreHandlesFileRemoval(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "keys.txt")
	writeKeyFile(t, file, "alpha\n")

	store, err := NewKeyStore(file, nil, 5*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if !store.IsValidKey("alpha") {
		t.Fatalf("expected initial key to be valid")
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("remove key file: %v", err)
	}

	waitForKey(t, store, "alpha", false)
}

func TestKeyStoreSiblingFileIgnored(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "keys.txt")
	writeKeyFile(t, file, "alpha\n")

	store, err := NewKeyStore(file, nil, 5*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sibling := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(sibling, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if !store.IsValidKey("alpha") {
		t.Fatalf("expected alpha to remain valid after sibling write")
	}
	if store.IsValidKey("noise") {
		t.Fatalf("sibling content must not become a key")
	}
}

func TestKeyStoreConcurrentValidation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "keys.txt")
	writeKeyFile(t, file, "alpha\nbeta\n")

	store, err := NewKeyStore(file, nil, 5*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.IsValidKey("alpha")
				store.IsValidKey("beta")
				store.IsValidKey("invalid")
			}
		}()
	}

	writeKeyFile(t, file, "alpha\nbeta\ngamma\n")
	time.Sleep(50 * time.Millisecond)
	writeKeyFile(t, file, "alpha\n")

	wg.Wait()
}

func TestKeyStoreCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "keys.txt")
	writeKeyFile(t, file, "alpha\n")

	store, err := NewKeyStore(file, nil, 5*time.Millisecond, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewKeyStore: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func writeKeyFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir key dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write key file: %v", err)
	}
}

func waitForKey(t *testing.T, store *KeyStore, key string, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.IsValidKey(key) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for key %s to reach state %v", key, want)
}
