// Package loader defines the Loader contract and its two base
// implementations.
//
// A Loader answers "what is the raw value of this key" for one backing
// source. Base handles the disabled flag and per-loader key renames;
// MapLoader adds a key/value cache that is filled at most once per epoch
// from a backend and can be reloaded, mutated and observed.
//
// Concrete backends live in sub-packages (fileloader, fetchloader,
// secretloader, storeloader); MemoryLoader and EnvLoader live here.
package loader
