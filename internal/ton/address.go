package ton

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

var ErrInvalidAddress = errors.New("invalid TON address")

// ParseAddress accepts the user-friendly base64 form ("EQ..", "UQ..") and the raw
// "workchain:hex" form.
func ParseAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(s, ":") {
		addr, err = address.ParseRawAddr(s)
	} else {
		addr, err = address.ParseAddr(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return addr, nil
}

// ValidateAddress parses s and checks it is usable on network.
// Testnet-only addresses are refused on mainnet; only basechain and masterchain are accepted.
func ValidateAddress(s, network string) (*address.Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return nil, err
	}
	if wc := addr.Workchain(); wc != 0 && wc != -1 {
		return nil, fmt.Errorf("%w: unsupported workchain %d", ErrInvalidAddress, wc)
	}
	if IsMainnet(network) && addr.IsTestnetOnly() {
		return nil, fmt.Errorf("%w: testnet address on mainnet", ErrInvalidAddress)
	}
	return addr, nil
}
