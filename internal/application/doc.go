// Package application provides application initialization and dependency wiring.
// It creates the preset registry and loaders, registers configured presets,
// builds the resolver, API handlers, router and HTTP server, keeping the main
// package focused on CLI parsing and orchestration.
package application
