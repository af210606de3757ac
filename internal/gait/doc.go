// Package gait defines the shared domain model for the video-to-metrics
// gait analysis pipeline: the fixed joint vocabulary, 2D/3D skeleton
// frames, gait cycles, the aggregate metrics value, the quality-gate
// result, and the pipeline error taxonomy.
//
// This package is the dependency root: the staged pipeline packages
// (g1pose through g6gate, and pipeline/) import from here, but this
// package imports none of them.
//
// Coordinate convention for 3D values: millimetres; +Y up; +X is the
// subject's direction of travel in the image plane; +Z is lateral
// (toward the camera). The origin is the mid-hip position of the first
// lifted frame.
package gait
