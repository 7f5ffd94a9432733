// Package ipc renders the producer's named synchronization objects as files
// inside one namespace directory.
//
// A named mutex is a lock file: its presence is the liveness oracle and
// flock provides the acquire/release probe. A named manual-reset event is an
// 8-byte file holding a signaled word and a pulse generation counter; writers
// serialize through an exclusive flock on the same file.
package ipc
