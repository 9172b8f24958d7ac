// Package settings reads the confkit CLI settings file and builds a Kit
// from it.
//
// The file is YAML (or JSON) and is layered with CONFKIT_* environment
// variables through confloader. It declares an ordered list of loaders and
// a schema of typed keys:
//
//	namespace: app
//	loaders:
//	  - type: env
//	  - type: dotenv
//	    path: .env
//	    optional: true
//	keys:
//	  PORT:
//	    type: int
//	    default: "8080"
//	  DATABASE_URL:
//	    type: url
//	    required: true
//	    log_format: partial
package settings
