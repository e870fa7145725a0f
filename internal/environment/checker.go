// Package environment verifies the prerequisites of the Composer client:
// a usable PHP CLI with the required extensions and a writable composer
// directory.
package environment

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
)

// Check names, stable across releases so views and tests can key on them.
const (
	CheckPHPBinary   = "php-binary"
	CheckPHPVersion  = "php-version"
	CheckExtension   = "php-extension"
	CheckComposerDir = "composer-dir"
	CheckGit         = "git"
)

// Problem is one unmet prerequisite.
type Problem struct {
	Name    string
	Message string
}

func (p Problem) String() string { return p.Message }

// Checker runs the environment checks. It only probes and never changes
// the filesystem.
type Checker struct {
	cfg         config.EnvironmentConfig
	composerDir string
	sys         System
	logger      *log.Logger
}

// NewChecker returns a checker for the given settings. A nil sys uses the
// real OS.
func NewChecker(cfg config.EnvironmentConfig, composerDir string, sys System, logger *log.Logger) *Checker {
	if sys == nil {
		sys = RealSystem{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{cfg: cfg, composerDir: composerDir, sys: sys, logger: logger}
}

// Check returns every unmet prerequisite. An empty result means the
// environment is usable.
func (c *Checker) Check(ctx context.Context) []Problem {
	var problems []Problem

	php, err := c.sys.LookPath(c.cfg.PHPBinary)
	if err != nil {
		problems = append(problems, Problem{
			Name:    CheckPHPBinary,
			Message: fmt.Sprintf("PHP CLI binary %q not found: %v", c.cfg.PHPBinary, err),
		})
	} else {
		problems = append(problems, c.checkPHPVersion(ctx, php)...)
		problems = append(problems, c.checkExtensions(ctx, php)...)
	}

	problems = append(problems, c.checkComposerDir()...)

	if c.cfg.RequireGit {
		if _, err := c.sys.LookPath("git"); err != nil {
			problems = append(problems, Problem{
				Name:    CheckGit,
				Message: "git is required for source installs but was not found",
			})
		}
	}

	for _, p := range problems {
		c.logger.Warn("Environment check failed", "check", p.Name, "problem", p.Message)
	}
	return problems
}

func (c *Checker) checkPHPVersion(ctx context.Context, php string) []Problem {
	if c.cfg.PHPConstraint == "" {
		return nil
	}
	out, err := c.sys.Output(ctx, php, "-r", "echo PHP_VERSION;")
	if err != nil {
		return []Problem{{Name: CheckPHPVersion, Message: fmt.Sprintf("cannot determine PHP version: %v", err)}}
	}

	raw := strings.TrimSpace(string(out))
	version, err := semver.NewVersion(phpCoreVersion(raw))
	if err != nil {
		return []Problem{{Name: CheckPHPVersion, Message: fmt.Sprintf("unrecognized PHP version %q", raw)}}
	}
	constraint, err := semver.NewConstraint(c.cfg.PHPConstraint)
	if err != nil {
		return []Problem{{Name: CheckPHPVersion, Message: fmt.Sprintf("invalid PHP constraint %q: %v", c.cfg.PHPConstraint, err)}}
	}
	if !constraint.Check(version) {
		return []Problem{{
			Name:    CheckPHPVersion,
			Message: fmt.Sprintf("PHP %s does not satisfy %s", raw, c.cfg.PHPConstraint),
		}}
	}
	return nil
}

// phpCoreVersion drops distribution suffixes such as "-4ubuntu2.19" or
// "+deb11u1" which are not semver pre-releases.
func phpCoreVersion(raw string) string {
	if i := strings.IndexAny(raw, "-+~"); i >= 0 {
		return raw[:i]
	}
	return raw
}

func (c *Checker) checkExtensions(ctx context.Context, php string) []Problem {
	if len(c.cfg.PHPExtensions) == 0 {
		return nil
	}
	out, err := c.sys.Output(ctx, php, "-m")
	if err != nil {
		return []Problem{{Name: CheckExtension, Message: fmt.Sprintf("cannot list PHP extensions: %v", err)}}
	}

	loaded := map[string]bool{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		loaded[strings.ToLower(line)] = true
	}

	var problems []Problem
	for _, ext := range c.cfg.PHPExtensions {
		if !loaded[strings.ToLower(ext)] {
			problems = append(problems, Problem{
				Name:    CheckExtension,
				Message: fmt.Sprintf("PHP extension %q is not loaded", ext),
			})
		}
	}
	return problems
}

// checkComposerDir verifies the composer dir, or the closest existing
// parent it would be created in, is a writable directory.
func (c *Checker) checkComposerDir() []Problem {
	dir := c.composerDir
	for {
		info, err := c.sys.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return []Problem{{
					Name:    CheckComposerDir,
					Message: fmt.Sprintf("composer directory %s cannot be created: %s is not a directory", c.composerDir, dir),
				}}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return []Problem{{
				Name:    CheckComposerDir,
				Message: fmt.Sprintf("composer directory %s cannot be inspected: %v", c.composerDir, err),
			}}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return []Problem{{
				Name:    CheckComposerDir,
				Message: fmt.Sprintf("composer directory %s has no existing parent", c.composerDir),
			}}
		}
		dir = parent
	}

	if err := c.sys.Writable(dir); err != nil {
		return []Problem{{
			Name:    CheckComposerDir,
			Message: fmt.Sprintf("composer directory %s is not writable: %v", dir, err),
		}}
	}
	return nil
}
