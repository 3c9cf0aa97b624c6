// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger with typed field helpers so services don't
// depend on zerolog directly, plus console/file sink setup driven by
// config.
package logx
