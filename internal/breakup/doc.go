// Package breakup implements the NASA standard breakup model used to seed a
// post-breakup debris cloud.
//
// Responsibilities: cumulative and binned fragment counts, characteristic
// length to area and mass conversions, the area-to-mass ratio sampler and the
// ejection and expansion velocities derived from it.
//
// Every function is pure apart from the random draws, which always come from
// an explicit *rand.Rand so that runs are reproducible under a fixed seed.
package breakup
