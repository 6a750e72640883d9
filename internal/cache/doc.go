// Package cache provides the bounded feature buffer used by cost providers.
//
// FIFO evicts entries in insertion order. Reading an entry does not refresh
// its position, which keeps the eviction order a pure function of the
// sequence of Add calls.
package cache
