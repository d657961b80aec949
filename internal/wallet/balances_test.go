package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

type stubFetcher struct {
	balances map[string]float64
	err      error
}

func (f *stubFetcher) GetBalance(_ context.Context, address string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.balances[address], nil
}

func balancesTestKeyring(t *testing.T, n int) (*Keyring, []string) {
	t.Helper()
	k := NewKeyring()
	var addrs []string
	for i := 0; i < n; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatal(err)
		}
		addr, err := k.Add(priv)
		if err != nil {
			t.Fatal(err)
		}
		addrs = append(addrs, addr)
	}
	return k, addrs
}

func TestBalanceTracker_Refresh(t *testing.T) {
	k, addrs := balancesTestKeyring(t, 2)
	fetcher := &stubFetcher{balances: map[string]float64{
		addrs[0]: 1.5,
		addrs[1]: 0.25,
	}}

	tracker := NewBalanceTracker(k, fetcher, time.Minute, log.New(io.Discard, "", 0))
	tracker.Refresh(context.Background())

	got := tracker.Balances()
	if len(got) != 2 {
		t.Fatalf("balances = %d, want 2", len(got))
	}
	// Keyring insertion order preserved
	if got[0].Address != addrs[0] || got[0].SOL != 1.5 {
		t.Errorf("balance 0 = %+v", got[0])
	}
	if got[1].Address != addrs[1] || got[1].SOL != 0.25 {
		t.Errorf("balance 1 = %+v", got[1])
	}
}

func TestBalanceTracker_FetchFailureKeepsPrevious(t *testing.T) {
	k, addrs := balancesTestKeyring(t, 1)
	fetcher := &stubFetcher{balances: map[string]float64{addrs[0]: 2.0}}
	tracker := NewBalanceTracker(k, fetcher, time.Minute, log.New(io.Discard, "", 0))

	tracker.Refresh(context.Background())
	fetcher.err = errors.New("rpc unavailable")
	tracker.Refresh(context.Background())

	got := tracker.Balances()
	if got[0].SOL != 2.0 {
		t.Errorf("balance = %v, want previous value 2.0", got[0].SOL)
	}
}

func TestBalanceTracker_UnfetchedReportsZero(t *testing.T) {
	k, _ := balancesTestKeyring(t, 1)
	fetcher := &stubFetcher{err: errors.New("down")}
	tracker := NewBalanceTracker(k, fetcher, time.Minute, log.New(io.Discard, "", 0))
	tracker.Refresh(context.Background())

	got := tracker.Balances()
	if len(got) != 1 || got[0].SOL != 0 {
		t.Errorf("unfetched wallet should report zero, got %+v", got)
	}
}
