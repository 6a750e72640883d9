// Package result persists localization output: the matched path and the
// diagnostic patch of recently expanded nodes.
package result
