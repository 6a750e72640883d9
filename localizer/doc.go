// Package localizer matches a query sequence against a reference sequence
// online.
//
// The Localizer runs a best-first search over the implicit query x reference
// grid. Every processed query extends the data association graph by roughly
// one row: while tracking, the cheapest frontier nodes are expanded through a
// bounded window of reference places; once the recent path consists mostly of
// hidden nodes, the next query is relocalized through a candidate retriever.
//
//	loc, _ := localizer.New(expander, 0.7, 3.0)
//	matches, _ := loc.FindMatchesTill(ctx, len(queries))
//
// Matches are returned most recent first.
package localizer
