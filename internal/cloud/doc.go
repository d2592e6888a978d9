// Package cloud builds the fragment population of a debris cloud at event
// zero.
//
// The characteristic length range is split into three regimes (small below
// 8 cm, medium from 8 to 11 cm, large above 11 cm), each discretized with its
// own step. Every discretized length owns one SubCloud whose fragments are
// drawn from an empirically parameterized radial Gaussian profile. Cloud
// exposes the aggregate bounding radius and the flat list of fragment
// positions consumed by the estimator and the exporters.
//
// The cloud is static apart from an optional linear radial expansion; no
// orbital propagation is performed.
package cloud
