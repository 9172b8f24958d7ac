// Package command provides the confkit CLI commands.
//
// Commands read the settings file named by --config, build a Kit from it
// and render their result with the --output formatter:
//
//   - get: resolve one key
//   - list: show what every loader answers for one key
//   - check: resolve every key and report failures
//   - watch: print value changes until interrupted
//   - version: print build information
package command
