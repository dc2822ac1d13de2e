package config

import (
	"fmt"
	"strings"

	"github.com/scoutapp/scout-apm-go/internal/platform"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// derivedSource computes composite values from other fields, looked up
// recursively through the owning Resolver. The dependency graph here
// is fixed and acyclic by construction (triple has no further deps;
// fullName depends on version+triple; socketPath depends on
// dir+fullName) — two levels deep.
type derivedSource struct {
	lookup func(prop string) (any, bool)
	logger scoutlog.Logger
}

func (derivedSource) Name() string { return "Derived" }

func (d *derivedSource) Get(prop string) (any, bool) {
	switch prop {
	case "coreAgentTriple":
		return d.triple(), true
	case "coreAgentFullName":
		return d.fullName(), true
	case "socketPath":
		return d.socketPath(), true
	default:
		return nil, false
	}
}

func (d *derivedSource) triple() string {
	t := platform.DetectTriple()
	if !platform.ValidTriple(t) && d.logger != nil {
		d.logger.Log(scoutlog.Warn, fmt.Sprintf("unrecognized platform triple %q", t))
	}
	return t
}

func (d *derivedSource) fullName() string {
	version, _ := d.lookup("coreAgentVersion")
	triple, _ := d.lookup("coreAgentTriple")
	v, _ := version.(string)
	t, _ := triple.(string)
	return fmt.Sprintf("scout_apm_core-%s-%s", strings.TrimPrefix(v, "v"), t)
}

func (d *derivedSource) socketPath() string {
	dir, _ := d.lookup("coreAgentDir")
	fullName, _ := d.lookup("coreAgentFullName")
	dStr, _ := dir.(string)
	fStr, _ := fullName.(string)
	return fmt.Sprintf("%s/%s/core-agent.sock", dStr, fStr)
}
