// Package main provides the entry point for confkit.
//
// confkit resolves the typed keys declared in a settings file against an
// ordered list of loaders and reports values with their provenance.
package main
