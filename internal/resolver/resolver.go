// Package resolver turns user-selected address tokens into resolved chain
// addresses with role tags.
package resolver

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/errors"
	"github.com/tezos-reporter/internal/types"
)

// tezosAddressLength is the base58 length of implicit and originated addresses
const tezosAddressLength = 36

// decodedAddressLength is prefix (3) + payload hash (20) + checksum (4)
const decodedAddressLength = 27

// base58check prefix bytes per address class
var addressPrefixes = map[string][]byte{
	"tz1": {6, 161, 159}, // ed25519 implicit account
	"tz2": {6, 161, 161}, // secp256k1 implicit account
	"tz3": {6, 161, 164}, // p256 implicit account
	"KT1": {2, 90, 121},  // originated contract
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Index [256]int8

func init() {
	for i := range base58Index {
		base58Index[i] = -1
	}
	for i := 0; i < len(base58Alphabet); i++ {
		base58Index[base58Alphabet[i]] = int8(i)
	}
}

// Resolve maps a list of user-selected tokens (alias names or literal address
// strings) to a deduplicated ordered address set with role tags. Pure function
// of the input and the static alias table.
func Resolve(tokens []string) ([]types.Address, error) {
	resolved := make([]types.Address, 0, len(tokens))
	seen := make(map[string]bool)

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		var addr types.Address
		if entry, ok := config.LookupAlias(token); ok {
			addr = types.Address{Value: entry.Address, Role: entry.Role, Alias: entry.Name}
		} else {
			if err := ValidateAddress(token); err != nil {
				return nil, errors.NewInvalidAddressError(token)
			}
			addr = types.Address{Value: token, Role: types.RoleGeneric}
		}

		if seen[addr.Value] {
			continue
		}
		seen[addr.Value] = true
		resolved = append(resolved, addr)
	}

	if len(resolved) == 0 {
		return nil, errors.NewNoAddressSelectedError()
	}

	return resolved, nil
}

// ValidateAddress checks a literal address against the Tezos address grammar:
// a 36-character base58check string with a tz1/tz2/tz3 or KT1 prefix and a
// valid 4-byte double-SHA256 checksum.
func ValidateAddress(address string) error {
	if len(address) != tezosAddressLength {
		return fmt.Errorf("address must be %d characters, got %d", tezosAddressLength, len(address))
	}

	prefix, ok := addressPrefixes[address[:3]]
	if !ok {
		return fmt.Errorf("unrecognized address prefix %q", address[:3])
	}

	decoded, err := base58Decode(address)
	if err != nil {
		return err
	}
	if len(decoded) != decodedAddressLength {
		return fmt.Errorf("decoded address must be %d bytes, got %d", decodedAddressLength, len(decoded))
	}
	if !bytes.Equal(decoded[:3], prefix) {
		return fmt.Errorf("decoded prefix does not match %q", address[:3])
	}

	payload := decoded[:decodedAddressLength-4]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], decoded[decodedAddressLength-4:]) {
		return fmt.Errorf("checksum mismatch")
	}

	return nil
}

// base58Decode decodes a base58 string into bytes, preserving leading zeros
func base58Decode(s string) ([]byte, error) {
	value := new(big.Int)
	radix := big.NewInt(58)
	digit := new(big.Int)

	for i := 0; i < len(s); i++ {
		idx := base58Index[s[i]]
		if idx < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", s[i])
		}
		value.Mul(value, radix)
		value.Add(value, digit.SetInt64(int64(idx)))
	}

	leading := 0
	for leading < len(s) && s[leading] == '1' {
		leading++
	}

	return append(make([]byte, leading), value.Bytes()...), nil
}
