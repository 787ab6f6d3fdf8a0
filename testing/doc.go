// Package testkit provides helpers for exercising the member repository and the pg driver
// in tests without a database.
//
// A Sandbox wraps a pgxmock connection that matches SQL exactly, so tests assert the full
// statement text a query renders. See sandbox.go for the fixture rows shared by tests.
package testkit
