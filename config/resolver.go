package config

import (
	"errors"
	"fmt"

	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// Resolver is an explicit get/set object rather than a transparent
// proxy: it routes property access through the four ordered sources
// [Env, Node, Derived, Default].
type Resolver struct {
	env     *envSource
	node    *nodeSource
	derived *derivedSource
	def     *defaultSource
	sources []Source
}

// NewResolver builds a Resolver seeded with initial Node-source values
// (the partial configuration supplied by the embedding program).
func NewResolver(initial map[string]any, logger scoutlog.Logger) *Resolver {
	r := &Resolver{
		env:     &envSource{},
		node:    newNodeSource(initial),
		derived: &derivedSource{logger: logger},
		def:     &defaultSource{},
	}
	r.derived.lookup = r.Get2
	r.sources = []Source{r.env, r.node, r.derived, r.def}
	return r
}

// Get returns the first defined value across [Env, Node, Derived,
// Default], or (nil, false) if no source defines prop.
func (r *Resolver) Get(prop string) (any, bool) {
	for _, s := range r.sources {
		if v, ok := s.Get(prop); ok {
			return v, true
		}
	}
	return nil, false
}

// ExplicitSocketPath reports the configured socketPath as the embedder
// set it — checking only Env and Node, the two sources that represent
// an actual choice — bypassing Derived, which would otherwise always
// produce a value and mask whether anyone configured one. The agent
// connection's socket-selection rule needs exactly this distinction:
// if socketPath is configured, use it literally; otherwise fall back
// to the version-gated default.
func (r *Resolver) ExplicitSocketPath() (string, bool) {
	if v, ok := r.env.Get("socketPath"); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	if v, ok := r.node.Get("socketPath"); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Get2 is the form derivedSource's recursive lookups call through;
// it has exactly the same semantics as Get.
func (r *Resolver) Get2(prop string) (any, bool) { return r.Get(prop) }

// Set writes to the Node source, the only writable one.
// coreAgentTriple and coreAgentFullName are pure composites of the
// Derived source and are never Node-settable; every other property
// may be overridden (Node still outranks Derived/Default in Get's
// search order, including for socketPath, which is both an operation
// field and a Derived fallback).
func (r *Resolver) Set(prop string, v any) error {
	if readOnly[prop] {
		return fmt.Errorf("config: %q: %w", prop, ErrNotSupported)
	}
	r.node.Set(prop, v)
	return nil
}

// Snapshot materializes every known property into a Record by calling
// Get on each.
func (r *Resolver) Snapshot() Record {
	var rec Record
	str := func(prop string) string {
		v, _ := r.Get(prop)
		s, _ := v.(string)
		return s
	}
	b := func(prop string) bool {
		v, _ := r.Get(prop)
		bv, _ := v.(bool)
		return bv
	}
	i := func(prop string) int {
		v, _ := r.Get(prop)
		iv, _ := v.(int)
		return iv
	}
	ss := func(prop string) []string {
		v, _ := r.Get(prop)
		sv, _ := v.([]string)
		return sv
	}
	lvl := func(prop string) scoutlog.Level {
		v, _ := r.Get(prop)
		lv, _ := v.(scoutlog.Level)
		return lv
	}

	rec.Name = str("name")
	rec.Key = str("key")
	rec.RevisionSHA = str("revisionSHA")
	rec.ApplicationRoot = str("applicationRoot")
	rec.LogLevel = lvl("logLevel")
	rec.SocketPath = str("socketPath")
	rec.LogFilePath = str("logFilePath")
	rec.AllowShutdown = b("allowShutdown")
	rec.Monitor = b("monitor")
	rec.Framework = str("framework")
	rec.FrameworkVersion = str("frameworkVersion")
	rec.APIVersion = str("apiVersion")
	rec.DownloadURL = str("downloadUrl")
	rec.CoreAgentDownload = b("coreAgentDownload")
	rec.CoreAgentLaunch = b("coreAgentLaunch")
	rec.CoreAgentDir = str("coreAgentDir")
	rec.CoreAgentLogLevel = lvl("coreAgentLogLevel")
	rec.CoreAgentPermissions = i("coreAgentPermissions")
	rec.CoreAgentVersion = str("coreAgentVersion")
	rec.Hostname = str("hostname")
	rec.Ignore = ss("ignore")
	rec.CollectRemoteIP = b("collectRemoteIP")
	if v, ok := r.Get("uriReporting"); ok {
		if u, ok := v.(URIReporting); ok {
			rec.URIReporting = u
		}
	}
	rec.DisabledInstruments = ss("disabledInstruments")
	rec.CoreAgentTriple = str("coreAgentTriple")
	rec.CoreAgentFullName = str("coreAgentFullName")
	return rec
}

// readOnly lists the properties that are pure Derived composites and
// therefore never settable through Node.
var readOnly = map[string]bool{
	"coreAgentTriple":   true,
	"coreAgentFullName": true,
}

// ErrNotSupported is returned by Set for properties that are pure
// Derived composites.
var ErrNotSupported = errors.New("config: property is not writable")
