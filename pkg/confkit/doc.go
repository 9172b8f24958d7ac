// Package confkit resolves typed configuration values from an ordered list
// of loaders.
//
// A Kit is built from a Schema, which declares every key the application
// reads, and from loaders queried in declaration order:
//
//	kit, err := confkit.New(confkit.Schema{
//		"PORT":    confkit.Field[int]{Parser: parser.Integer(), Default: loadable.Value(8080)},
//		"API_KEY": confkit.Field[string]{Parser: parser.String(), Required: true, LogFormat: parser.LogPartial},
//	}, []loader.Loader{
//		loader.NewEnvLoader(loader.EnvConfig{}),
//		fileloader.New(fileloader.Config{Path: ".env"}),
//	})
//
//	port, err := confkit.Get[int](ctx, kit, "PORT")
//
// The first loader returning a non-empty value wins. When none does, the
// declared default is used; a required key without a value fails with a
// missing-value error, and any other key resolves to nothing.
//
// Every resolution is logged as
//
//	ConfigVariables[<loader>]: <key> [<redacted value>] from <path>
//
// or, for defaults and absent values, as "ConfigVariables: <key> [<value>]".
package confkit
