// Package detect probes the configured ccusage invocation strategies and
// reports which ones are installed and recent enough.
package detect

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/janekbaraniewski/usagetray/internal/ccusage"
)

const defaultProbeTimeout = 20 * time.Second

var versionPattern = regexp.MustCompile(`v?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?`)

// Probe is the outcome of checking one strategy.
type Probe struct {
	Strategy   ccusage.Strategy
	BinaryPath string // resolved path of the strategy's command, if found
	Version    string // canonical semver, empty when it could not be read
	Compatible bool
	Err        string
}

func (p Probe) Found() bool {
	return p.BinaryPath != ""
}

type Report struct {
	MinVersion string
	Probes     []Probe
}

// Usable returns the first strategy that is installed and either meets the
// minimum version or does not report one.
func (r Report) Usable() (Probe, bool) {
	for _, p := range r.Probes {
		if !p.Found() || p.Err != "" {
			continue
		}
		if p.Version == "" || p.Compatible {
			return p, true
		}
	}
	return Probe{}, false
}

type Options struct {
	Runner  ccusage.Runner
	Timeout time.Duration
	// LookPath resolves a command name; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

func Detect(ctx context.Context, strategies []ccusage.Strategy, minVersion string, opts Options) Report {
	if opts.Runner == nil {
		opts.Runner = ccusage.ExecRunner{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProbeTimeout
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}

	report := Report{MinVersion: NormalizeVersion(minVersion)}
	for _, s := range strategies {
		report.Probes = append(report.Probes, probe(ctx, s, report.MinVersion, opts))
	}
	return report
}

func probe(ctx context.Context, s ccusage.Strategy, minVersion string, opts Options) Probe {
	p := Probe{Strategy: s}

	path, err := opts.LookPath(s.Command)
	if err != nil {
		p.Err = fmt.Sprintf("%s not found on PATH", s.Command)
		return p
	}
	p.BinaryPath = path

	probeCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	args := append(append([]string{}, s.Args...), "--version")
	out, err := opts.Runner.Run(probeCtx, s.Command, args)
	if err != nil {
		p.Err = err.Error()
		return p
	}
	if out.ExitCode != 0 {
		p.Err = fmt.Sprintf("--version exited with code %d", out.ExitCode)
		return p
	}

	p.Version = ParseVersion(string(out.Stdout))
	if p.Version == "" {
		return p
	}
	p.Compatible = minVersion == "" || semver.Compare(p.Version, minVersion) >= 0
	return p
}

// ParseVersion pulls the first semver-looking token out of tool output.
func ParseVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if m := versionPattern.FindString(line); m != "" {
			if v := NormalizeVersion(m); v != "" {
				return v
			}
		}
	}
	return ""
}

func NormalizeVersion(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
