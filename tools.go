//go:build tools
// +build tools

// Package tools pins the versions of the linter and the ginkgo runner used
// by the Makefile-free workflow: go run github.com/onsi/ginkgo/ginkgo ./...
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/onsi/ginkgo/ginkgo"
)
