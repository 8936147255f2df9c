// Package storage provides preset loaders: an in-memory registry of named
// presets, a filesystem loader for presets referenced by path, and a chain
// combining several loaders.
package storage
