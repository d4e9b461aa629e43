// Package testutil provides shared test helpers for gridstitch packages.
//
// [RequireReceive] wraps the select-with-timeout pattern used by tests that
// must prove a goroutine terminates rather than hangs. [MockReader] is a
// testify mock of the container reader. [SolidTile] and [LookPath] build
// fixtures for tests that drive real POSIX tools (cat, sh) as stand-in
// transcoders.
//
// All helpers fail the test on error rather than returning it.
package testutil
