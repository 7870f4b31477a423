package registration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelaySchedule(t *testing.T) {
	assert.Equal(t, 640*time.Millisecond, backoffDelay(0))
	assert.Equal(t, 1280*time.Millisecond, backoffDelay(1))
	assert.Equal(t, 2560*time.Millisecond, backoffDelay(2))
	assert.Equal(t, 32*time.Second, backoffDelay(10))
}

type fakeLedger struct {
	record         Record
	sequence       uint64
	fee            uint64
	version        string
	registerErr    error
	registerCalls  int
}

func (f *fakeLedger) QueryRecord(ctx context.Context, address string) (Record, error) {
	return f.record, nil
}
func (f *fakeLedger) Sequence(ctx context.Context, address string) (uint64, error) {
	return f.sequence, nil
}
func (f *fakeLedger) RegistrationFee(ctx context.Context) (uint64, error) { return f.fee, nil }
func (f *fakeLedger) ContractVersion(ctx context.Context) (string, error) { return f.version, nil }
func (f *fakeLedger) Register(ctx context.Context, req RegisterRequest) error {
	f.registerCalls++
	return f.registerErr
}

type fakeWallet struct{ balance uint64 }

func (w *fakeWallet) Balance(ctx context.Context) (uint64, error) { return w.balance, nil }
func (w *fakeWallet) Sign(digest []byte) ([]byte, error)          { return []byte("sig"), nil }

func TestLedgerPolicySkipsWhenUnchangedAndFarFromExpiry(t *testing.T) {
	desired := Record{Endpoints: []string{"http://a"}, ProtocolDigests: []string{"proto:1"}}
	ledger := &fakeLedger{record: Record{
		Endpoints:       desired.Endpoints,
		ProtocolDigests: desired.ProtocolDigests,
		ExpiresAt:       time.Now().Add(48 * time.Hour),
	}, version: "1.2.0"}
	wallet := &fakeWallet{balance: 100}

	policy := NewLedgerPolicy("agent1qx", ledger, wallet)
	require.NoError(t, policy.Tick(context.Background(), desired))
	assert.Equal(t, 0, ledger.registerCalls)
}

func TestLedgerPolicyBroadcastsWhenChanged(t *testing.T) {
	desired := Record{Endpoints: []string{"http://new"}, ProtocolDigests: []string{"proto:1"}}
	ledger := &fakeLedger{record: Record{
		Endpoints:  []string{"http://old"},
		ExpiresAt:  time.Now().Add(48 * time.Hour),
	}, version: "1.2.0", fee: 10}
	wallet := &fakeWallet{balance: 100}

	policy := NewLedgerPolicy("agent1qx", ledger, wallet)
	require.NoError(t, policy.Tick(context.Background(), desired))
	assert.Equal(t, 1, ledger.registerCalls)
}

func TestLedgerPolicyBroadcastsWhenNearExpiry(t *testing.T) {
	desired := Record{Endpoints: []string{"http://a"}}
	ledger := &fakeLedger{record: Record{
		Endpoints: desired.Endpoints,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}, version: "1.0.0"}
	wallet := &fakeWallet{balance: 100}

	policy := NewLedgerPolicy("agent1qx", ledger, wallet).WithMinSecondsLeft(24 * time.Hour)
	require.NoError(t, policy.Tick(context.Background(), desired))
	assert.Equal(t, 1, ledger.registerCalls)
}

func TestLedgerPolicyDoesNotErrorOnInsufficientFunds(t *testing.T) {
	desired := Record{Endpoints: []string{"http://new"}}
	ledger := &fakeLedger{record: Record{Endpoints: []string{"http://old"}}, fee: 50}
	wallet := &fakeWallet{balance: 1}

	policy := NewLedgerPolicy("agent1qx", ledger, wallet)
	err := policy.Tick(context.Background(), desired)
	assert.NoError(t, err)
	assert.Equal(t, 0, ledger.registerCalls)
}
