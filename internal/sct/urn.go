package sct

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/stacksregistry/registry-server/internal/errors"
)

// URNMinter generates delegated patron identifiers: UUID URNs whose node
// component is a fixed per-deployment value, so identifiers minted by
// different registries never collide.
type URNMinter struct {
	node [6]byte
}

// NewURNMinter parses the configured node value, either hex ("0x685b35c00f05")
// or decimal, into the 48-bit UUID node component.
func NewURNMinter(node string) (*URNMinter, error) {
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(node, "0x") || strings.HasPrefix(node, "0X") {
		v, err = strconv.ParseUint(node[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(node, 10, 64)
	}
	if err != nil {
		return nil, errors.Validationf("node value %q is not a number", node)
	}
	if v >= 1<<48 {
		return nil, errors.Validationf("node value %q does not fit in 48 bits", node)
	}

	m := &URNMinter{}
	for i := 5; i >= 0; i-- {
		m.node[i] = byte(v)
		v >>= 8
	}
	return m, nil
}

// Mint returns a fresh delegated identifier URN. The leading nibble of the
// UUID is forced to zero; downstream systems expect that exact shape, so it
// is preserved even though the reason for it is historical.
func (m *URNMinter) Mint() (string, error) {
	u, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	copy(u[10:], m.node[:])
	return "urn:uuid:0" + u.String()[1:], nil
}
