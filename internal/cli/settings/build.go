package settings

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"go.uber.org/multierr"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/internal/infra/tlsroots"
	"github.com/yndnr/confkit-go/pkg/confkit"
	"github.com/yndnr/confkit-go/pkg/loadable"
	"github.com/yndnr/confkit-go/pkg/loader"
	"github.com/yndnr/confkit-go/pkg/loader/fetchloader"
	"github.com/yndnr/confkit-go/pkg/loader/fileloader"
	"github.com/yndnr/confkit-go/pkg/loader/secretloader"
	"github.com/yndnr/confkit-go/pkg/loader/storeloader"
	"github.com/yndnr/confkit-go/pkg/logger"
	"github.com/yndnr/confkit-go/pkg/metric"
	"github.com/yndnr/confkit-go/pkg/parser"
)

// BuildOptions carries the runtime dependencies of Build.
type BuildOptions struct {
	Logger  logger.Logger
	Metrics *metric.Recorder
	// LookupEnv replaces os.LookupEnv for env loaders and cipher keys.
	LookupEnv func(string) (string, bool)
}

// Build creates the loaders and the schema described by s and returns the
// Kit. Every problem is reported together; loaders created before a
// failure are closed.
func Build(ctx context.Context, s *Settings, opts BuildOptions) (*confkit.Kit, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	var errs error
	loaders := make([]loader.Loader, 0, len(s.Loaders))
	for i, ls := range s.Loaders {
		l, err := buildLoader(ls, opts)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("loader %d (%s): %w", i, ls.Type, err))
			continue
		}
		loaders = append(loaders, l)
	}

	schema := make(confkit.Schema, len(s.Keys))
	for key, ks := range s.Keys {
		f, err := buildField(ctx, ks)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("key %s: %w", key, err))
			continue
		}
		schema[key] = f
	}

	if errs != nil {
		return nil, multierr.Append(errs, closeAll(loaders))
	}

	policy := confkit.LoaderErrorsLog
	if s.LoaderErrors == "throw" {
		policy = confkit.LoaderErrorsThrow
	}
	kit, err := confkit.New(schema, loaders,
		confkit.WithLogger(opts.Logger),
		confkit.WithNamespace(s.Namespace),
		confkit.WithLoaderErrors(policy),
		confkit.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, multierr.Append(err, closeAll(loaders))
	}
	return kit, nil
}

func closeAll(loaders []loader.Loader) error {
	var errs error
	for _, l := range loaders {
		if c, ok := l.(io.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	return errs
}

func buildLoader(ls LoaderSettings, opts BuildOptions) (loader.Loader, error) {
	lopts := []loader.Option{
		loader.WithLogger(opts.Logger),
		loader.WithMetrics(opts.Metrics),
		loader.WithDisabled(loadable.Value(ls.Disabled)),
	}
	if len(ls.OverrideKeys) > 0 {
		lopts = append(lopts, loader.WithOverrideKeys(ls.OverrideKeys))
	}

	switch ls.Type {
	case LoaderEnv:
		return loader.NewEnvLoader(loader.EnvConfig{Prefix: ls.Prefix, LookupEnv: opts.LookupEnv}, lopts...), nil

	case LoaderDotenv, LoaderJSON, LoaderYAML:
		format := confloader.FormatDotenv
		switch ls.Type {
		case LoaderJSON:
			format = confloader.FormatJSON
		case LoaderYAML:
			format = confloader.FormatYAML
		}
		return fileloader.New(fileloader.Config{
			Path:     ls.Path,
			Format:   format,
			Watch:    ls.Watch,
			Optional: ls.Optional,
			Strict:   ls.Strict,
		}, lopts...), nil

	case LoaderMemory:
		return loader.NewMemoryLoader(ls.Data, lopts...), nil

	case LoaderFetch:
		return buildFetch(ls, opts, lopts)

	case LoaderSecretsDir:
		return secretloader.NewDirLoader(secretloader.DirConfig{
			Dir:   ls.Dir,
			Keys:  ls.Names,
			Lower: ls.Lower,
		}, lopts...), nil

	case LoaderStore:
		return buildStore(ls, opts, lopts)
	}
	return nil, fmt.Errorf("unknown loader type %q", ls.Type)
}

func buildFetch(ls LoaderSettings, opts BuildOptions, lopts []loader.Option) (loader.Loader, error) {
	u, err := url.Parse(ls.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid fetch url: %w", err)
	}

	cc := fetchloader.DefaultClientConfig()
	if ls.Retries > 0 {
		cc.RetryMax = ls.Retries
	}
	cfg := fetchloader.Config{
		Cache:       fetchloader.NewMemoryCache(),
		Strict:      ls.Strict,
		MinInterval: ls.MinInterval,
	}

	tlsCfg := tlsroots.Config{
		CAFile:             ls.CAFile,
		CertFile:           ls.CertFile,
		KeyFile:            ls.KeyFile,
		Watch:              ls.Watch,
		InsecureSkipVerify: ls.Insecure,
	}
	if tlsCfg.Enabled() {
		tc, closer, err := tlsroots.ClientConfig(tlsCfg, opts.Logger)
		if err != nil {
			return nil, err
		}
		cc.TLS = tc
		cfg.Closer = closer
	}
	cfg.Client = fetchloader.NewClient(cc, opts.Logger)

	if len(ls.Headers) == 0 {
		l, err := fetchloader.NewURL(u.String(), cfg, lopts...)
		if err != nil {
			if cfg.Closer != nil {
				_ = cfg.Closer.Close()
			}
			return nil, err
		}
		return l, nil
	}

	headers := maps.Clone(ls.Headers)
	cfg.Request = loadable.Deferred(func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	return fetchloader.New(cfg, lopts...), nil
}

func buildStore(ls LoaderSettings, opts BuildOptions, lopts []loader.Option) (loader.Loader, error) {
	var codec storeloader.Codec
	if ls.Cipher != "" {
		raw, ok := opts.LookupEnv(ls.KeyEnv)
		if !ok {
			return nil, fmt.Errorf("cipher key variable %s is not set", ls.KeyEnv)
		}
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("cipher key variable %s: %w", ls.KeyEnv, err)
		}
		algorithm := ls.Cipher
		if algorithm == "auto" {
			algorithm = ""
		}
		aead, err := storeloader.NewCipher(algorithm, key)
		if err != nil {
			return nil, err
		}
		codec = storeloader.NewCodec(aead)
	}

	driver, err := storeloader.OpenBadger(storeloader.BadgerConfig{
		Dir:      ls.Path,
		InMemory: ls.InMemory,
	}, codec, opts.Logger)
	if err != nil {
		return nil, err
	}
	return storeloader.New(driver, lopts...), nil
}

func buildField(ctx context.Context, ks KeySettings) (confkit.FieldSpec, error) {
	logFormat, err := parser.ParseLogFormat(ks.LogFormat)
	if err != nil {
		return nil, err
	}
	keyFormat, err := parser.ParseKeyFormat(ks.KeyFormat)
	if err != nil {
		return nil, err
	}
	var arrayOpts []parser.ArrayOption
	if ks.Separator != "" {
		arrayOpts = append(arrayOpts, parser.WithSeparator(ks.Separator))
	}

	switch ks.Type {
	case "", TypeString:
		return field[string](ctx, parser.String(), ks, logFormat)
	case TypeBool:
		return field[bool](ctx, parser.Boolean(), ks, logFormat)
	case TypeInt:
		return field[int](ctx, parser.Integer(), ks, logFormat)
	case TypeFloat:
		return field[float64](ctx, parser.Float(), ks, logFormat)
	case TypeBigInt:
		return field[*big.Int](ctx, parser.BigInt(), ks, logFormat)
	case TypeURL:
		return field[*url.URL](ctx, parser.URL(), ks, logFormat)
	case TypeJSON:
		return field[map[string]any](ctx, parser.JSON(
			parser.WithProtectedKeys[map[string]any](ks.ProtectedKeys...),
		), ks, logFormat)
	case TypeSemiColon:
		return field[map[string]string](ctx, parser.SemiColonMap(
			parser.WithProtectedKeys[map[string]string](ks.ProtectedKeys...),
			parser.WithKeyFormat[map[string]string](keyFormat),
		), ks, logFormat)
	case TypeStringArray:
		return field[[]string](ctx, parser.Array[string](parser.String(), arrayOpts...), ks, logFormat)
	case TypeIntArray:
		return field[[]int](ctx, parser.Array[int](parser.Integer(), arrayOpts...), ks, logFormat)
	}
	return nil, fmt.Errorf("unknown key type %q", ks.Type)
}

// field declares a key of type T. A default is parsed once, here, so that
// a malformed default is a settings error rather than a resolution error.
func field[T any](ctx context.Context, p parser.Parser[T], ks KeySettings, lf parser.LogFormat) (confkit.FieldSpec, error) {
	f := confkit.Field[T]{
		Parser:    p,
		Required:  ks.Required,
		LogFormat: lf,
	}
	if ks.Default != nil {
		v, err := p.Parse(ctx, *ks.Default)
		if err != nil {
			return nil, fmt.Errorf("default %s: %w", strconv.Quote(*ks.Default), err)
		}
		f.Default = loadable.Value(v)
	}
	return f, nil
}
