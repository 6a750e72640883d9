// Package testutil provides testing utilities for seqloc.
//
// This package is intended for use in tests only. It provides a
// deterministic RNG and generators for synthetic trajectories.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	v := rng.UniformVector(128)      // uniform [0, 1)
//	u := rng.UnitVectors(10, 128)    // on the hypersphere
//
// # Synthetic Trajectories
//
//	refs, queries := rng.Trajectory(50, 128, 0.05)
//
// queries[i] is a noisy revisit of refs[i].
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
