//go:build integration

// Package testinfra starts disposable infrastructure for integration tests.
//
// Tests using it carry the integration build tag and need a Docker daemon:
//
//	go test -tags integration ./...
package testinfra
