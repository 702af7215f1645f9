// Package motor models a brushed DC motor as a two-state ODE.
//
// The state vector is [armature current i, angular velocity w]:
//
//	di/dt = (u - Ra*i - k*w) / La
//	dw/dt = (k*i - b*w - TL) / J
//
// [Motor] implements [dynamo.System]; the armature voltage is the single
// control input. Zero inductance or inertia is rejected by [New].
package motor
