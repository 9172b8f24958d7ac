// Package confloader reads structured configuration files and watches them
// for changes.
//
// It serves two consumers. The file-backed loaders read a YAML, JSON or
// dotenv document into a flat string map with ReadFile, and reload it when
// a debounced Watcher reports a change. The confkit command reads its own
// settings with Loader, which layers sources with koanf, highest
// precedence first:
//
//  1. Maps passed to LoadMap (flags, tests)
//  2. Environment variables with the CONFKIT_ prefix
//  3. The settings file
package confloader
