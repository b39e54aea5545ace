//go:build !unix

package deepfake

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// entry point itself; WaitDelay bounds the wait for its children.
func killProcessGroup(*exec.Cmd) {}
