// Package output renders command results as a table, JSON or YAML.
//
// Results that know their tabular form implement Tabler; everything is
// encoded as-is for JSON and YAML.
package output
