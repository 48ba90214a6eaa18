//go:build tools
// +build tools

// Package tools declares the code generators this module depends on.
//
// Nothing here is compiled into the relay or the peer. The blank imports keep
// mockgen, invoked through `go generate` from contract/contract.go, pinned in
// go.mod so the mocks in mocks/ are regenerated with the same version on any
// checkout or CI run.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
