// Package devserver ties every other package together into the
// request dispatcher described in spec.md §4.7: handleRequest's
// 16-step fixed-order routing, warmup, and HMR wiring.
package devserver

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/almostnode/core/internal/apiexec"
	"github.com/almostnode/core/internal/hmr"
	"github.com/almostnode/core/internal/jsrt"
	"github.com/almostnode/core/internal/nextconfig"
	"github.com/almostnode/core/internal/npmbundle"
	"github.com/almostnode/core/internal/resolve"
	"github.com/almostnode/core/internal/transform"
	"github.com/almostnode/core/internal/vfs"
	"github.com/almostnode/core/kit/colorlog"
	"github.com/almostnode/core/kit/cryptoutil"
	"github.com/joho/godotenv"
)

// Options is NextDevServerOptions (spec.md §6.4).
type Options struct {
	Port     int
	Root     string // default "/"
	PagesDir string // default "/pages"
	AppDir   string // default "/app"
	PublicDir string // default "/public"

	PreferAppRouter *bool // nil = auto-detect

	Env                     map[string]string
	AssetPrefix             string
	BasePath                string
	AdditionalImportMap     map[string]string
	AdditionalLocalPackages []string
	APIModules              map[string]any
	EsmShDeps               string
	CORSProxy               string

	// HMRSigningKey, when set, authenticates every update broadcast
	// over the optional ws:// HMR bridge (nil disables signing).
	HMRSigningKey cryptoutil.Key32
	// HMRAllowedOrigins restricts the ws:// HMR bridge's handshake to
	// a fixed hostname allowlist (empty allows any origin).
	HMRAllowedOrigins []string

	JSExecutor jsrt.Executor
}

// withDefaults fills zero-valued fields with spec.md §6.4 defaults.
func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "/"
	}
	if o.PagesDir == "" {
		o.PagesDir = "/pages"
	}
	if o.AppDir == "" {
		o.AppDir = "/app"
	}
	if o.PublicDir == "" {
		o.PublicDir = "/public"
	}
	return o
}

// Server is the validated, constructed dev server: a DevServer plus
// every wired subsystem.
type Server struct {
	opts Options
	vfs  vfs.VFS

	pkgCache     *resolve.PackageJSONCache
	installed    *resolve.InstalledPackages
	transformer  *transform.Transformer
	bundler      *npmbundle.Bundler
	apiExecutor  *apiexec.Executor
	hmrEmitter   *hmr.Emitter
	hmrBridge    *hmr.Bridge

	env         map[string]string
	nextConfig  nextconfig.NextConfig
	log         *slog.Logger
}

// New validates options and wires every subsystem (spec.md §2
// dependency order: VFS -> transforms/require -> bundler/router ->
// html/api -> dispatch -> hmr).
func New(v vfs.VFS, opts Options) (*Server, error) {
	opts = opts.withDefaults()
	if opts.Port <= 0 {
		return nil, fmt.Errorf("devserver: Port must be positive")
	}

	pkgCache := resolve.NewPackageJSONCache()
	installed := resolve.NewInstalledPackages(v)

	env := mergedEnv(v, opts)

	aliases := nextconfig.LoadTSConfigPaths(v, opts.Root)
	nc := nextconfig.LoadNextConfig(v, opts.Root)
	nc = nextconfig.LoadTOMLOverride(v, opts.Root, nc)
	assetPrefix := opts.AssetPrefix
	if assetPrefix == "" {
		assetPrefix = nc.AssetPrefix
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = nc.BasePath
	}
	opts.AssetPrefix = assetPrefix
	opts.BasePath = basePath

	localPkgs := make(map[string]bool, len(opts.AdditionalLocalPackages))
	for _, p := range opts.AdditionalLocalPackages {
		localPkgs[p] = true
	}

	transformer := transform.New(v, transform.Config{
		Port:                    opts.Port,
		Aliases:                 aliases,
		AdditionalLocalPackages: localPkgs,
		Dependencies:            installed.Dependencies(),
		EsmShDeps:               opts.EsmShDeps,
	})

	bundler := npmbundle.New(v, pkgCache)

	apiExec := apiexec.New(v, apiexec.Options{
		BuiltinModules:   apiexec.BuildBuiltinModules(v),
		APIModules:       opts.APIModules,
		Env:              env,
		CORSProxyURL:     opts.CORSProxy,
		JSExecutor:       opts.JSExecutor,
		PackageJSONCache: pkgCache,
	})

	emitter := hmr.New(v, hmr.Options{IgnoreGlobs: []string{"**/node_modules/**", "**/.git/**"}})
	bridge := hmr.NewBridge(emitter, hmr.BridgeOptions{
		SigningKey:     opts.HMRSigningKey,
		AllowedOrigins: opts.HMRAllowedOrigins,
	})

	log := colorlog.New("devserver")

	return &Server{
		opts:        opts,
		vfs:         v,
		pkgCache:    pkgCache,
		installed:   installed,
		transformer: transformer,
		bundler:     bundler,
		apiExecutor: apiExec,
		hmrEmitter:  emitter,
		hmrBridge:   bridge,
		env:         env,
		nextConfig:  nc,
		log:         log,
	}, nil
}

// mergedEnv loads .env* files via godotenv (lowest to highest
// precedence) then layers options.Env on top (spec.md §6.4 "env").
func mergedEnv(v vfs.VFS, opts Options) map[string]string {
	merged := map[string]string{}
	for _, name := range []string{".env", ".env.local", ".env.development", ".env.development.local"} {
		path := vfs.Join(opts.Root, name)
		if !v.Exists(path) {
			continue
		}
		data, err := v.ReadFileSync(path)
		if err != nil {
			continue
		}
		parsed, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			continue
		}
		for k, val := range parsed {
			merged[k] = val
		}
	}
	for k, val := range opts.Env {
		merged[k] = val
	}
	return merged
}

// HMR exposes the wired emitter so a host can register listeners or a
// target window before calling Start.
func (s *Server) HMR() *hmr.Emitter { return s.hmrEmitter }

// HMRBridge exposes the optional ws:// fallback transport, for hosts
// that want to mount it at an HTTP endpoint instead of (or alongside)
// wiring a TargetWindow directly.
func (s *Server) HMRBridge() *hmr.Bridge { return s.hmrBridge }

// Start begins watching pagesDir/appDir/publicDir for HMR (spec.md
// §4.7 "Watchers are created on start()").
func (s *Server) Start() error {
	for _, dir := range []string{s.opts.PagesDir, s.opts.AppDir, s.opts.PublicDir} {
		if !s.vfs.Exists(dir) {
			continue
		}
		if err := s.hmrEmitter.Watch(dir); err != nil {
			return err
		}
		s.log.Debug("watching directory", "dir", dir)
	}
	s.log.Info("dev server started", "port", s.opts.Port)
	return nil
}

// Stop closes every HMR watcher.
func (s *Server) Stop() {
	s.hmrEmitter.Stop()
	s.log.Info("dev server stopped")
}

// ClearInstalledPackagesCache invalidates the shared installed-package
// and dependency caches, plus the bundler's bundle cache and
// package.json cache (spec.md §3, §4.4).
func (s *Server) ClearInstalledPackagesCache() {
	s.installed.Clear()
	s.pkgCache.Clear()
	s.bundler.ClearCache()
}
