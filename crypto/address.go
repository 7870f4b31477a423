package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// Network selects which bech32 human-readable prefix an AgentAddress uses.
type Network int

const (
	NetworkMainnet Network = iota
	NetworkTestnet
)

// Prefix returns the bech32 HRP for the network, per §3/§6.6.
func (n Network) Prefix() string {
	if n == NetworkTestnet {
		return "test-agent"
	}
	return "agent"
}

// AddressSize is the decoded payload length of a valid AgentAddress: the
// blake2b-256 digest of the public key.
const AddressSize = 32

// DeriveAddress computes the AgentAddress for a public key under a network:
// prefix || bech32(blake2b-256(publicKeyBytes)).
func DeriveAddress(publicKeyBytes []byte, network Network) (string, error) {
	hash := blake2b.Sum256(publicKeyBytes)

	converted, err := bech32.ConvertBits(hash[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("address: convert bits: %w", err)
	}
	addr, err := bech32.Encode(network.Prefix(), converted)
	if err != nil {
		return "", fmt.Errorf("address: bech32 encode: %w", err)
	}
	return addr, nil
}

// AddressOf is a convenience wrapper deriving the AgentAddress on network
// for a KeyPair's public key.
func AddressOf(kp KeyPair, network Network) (string, error) {
	return DeriveAddress(kp.PublicKeyBytes(), network)
}

// ValidateAddress checks that addr is a well-formed AgentAddress: valid
// bech32 checksum, a recognized prefix, and a 32-byte decoded payload (§6.6).
func ValidateAddress(addr string) error {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("address: invalid bech32: %w", err)
	}
	if hrp != NetworkMainnet.Prefix() && hrp != NetworkTestnet.Prefix() {
		return fmt.Errorf("address: unrecognized prefix %q", hrp)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("address: convert bits: %w", err)
	}
	if len(payload) != AddressSize {
		return fmt.Errorf("address: payload length %d, want %d", len(payload), AddressSize)
	}
	return nil
}

// AddressNetwork returns which network an address belongs to.
func AddressNetwork(addr string) (Network, error) {
	hrp, _, err := bech32.Decode(addr)
	if err != nil {
		return 0, fmt.Errorf("address: invalid bech32: %w", err)
	}
	switch hrp {
	case NetworkMainnet.Prefix():
		return NetworkMainnet, nil
	case NetworkTestnet.Prefix():
		return NetworkTestnet, nil
	default:
		return 0, fmt.Errorf("address: unrecognized prefix %q", hrp)
	}
}
