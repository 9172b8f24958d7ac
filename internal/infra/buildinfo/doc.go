// Package buildinfo provides build information for confkit.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/confkit-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Values left unset are filled from the module build information where
// the toolchain recorded it.
package buildinfo
