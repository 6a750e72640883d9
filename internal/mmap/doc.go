// Package mmap provides read-only memory-mapped file access.
//
// The local blob store maps feature documents and matrices instead of
// reading them into the heap:
//
//	m, err := mmap.Open("costs.sqm")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2); Windows uses MapViewOfFile and treats
// access hints as no-ops. Bytes must not be used after Close returns.
package mmap
