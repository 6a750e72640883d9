// Package successor expands hypotheses of the data association graph.
//
// A node (q, r) is followed by the nodes of query q+1 within fanOut of r, and
// optionally within fanOut of every reference place known to look like r.
// When the localizer is lost, the successors come from a relocalize.Retriever.
package successor
