// Package tlsroots builds client TLS settings for loaders that reach
// configuration servers over HTTPS.
//
// A Pool combines the system roots with extra CA files. A KeyPair holds a
// client certificate and can reload it when the files on disk change.
package tlsroots
