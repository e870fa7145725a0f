package pkgmgr

import (
	"encoding/json"
	"fmt"
)

// StringOrArray is a type that can unmarshal both a single string or an array of strings
type StringOrArray []string

func (s *StringOrArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = []string{str}
		return nil
	}

	return fmt.Errorf("value must be string or array of strings")
}

// ComposerJSON is the typed view of a composer.json manifest. Keys not listed
// here survive a load/save round trip through RootPackage.
type ComposerJSON struct {
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	Type             string            `json:"type,omitempty"`
	License          StringOrArray     `json:"license,omitempty"`
	Version          string            `json:"version,omitempty"`
	Require          map[string]string `json:"require,omitempty"`
	RequireDev       map[string]string `json:"require-dev,omitempty"`
	Provide          map[string]string `json:"provide,omitempty"`
	Autoload         Autoload          `json:"autoload,omitempty"`
	MinimumStability string            `json:"minimum-stability,omitempty"`
	PreferStable     bool              `json:"prefer-stable,omitempty"`
	Config           Config            `json:"config,omitempty"`
	Repositories     []Repository      `json:"repositories,omitempty"`
	AllowPlugins     map[string]bool   `json:"allow-plugins,omitempty"`
	Extra            map[string]any    `json:"extra,omitempty"`
}

type Autoload struct {
	PSR4     map[string]StringOrArray `json:"psr-4,omitempty"`
	PSR0     map[string]StringOrArray `json:"psr-0,omitempty"`
	Classmap StringOrArray            `json:"classmap,omitempty"`
	Files    StringOrArray            `json:"files,omitempty"`
}

func (a Autoload) empty() bool {
	return len(a.PSR4) == 0 && len(a.PSR0) == 0 && len(a.Classmap) == 0 && len(a.Files) == 0
}

type Config struct {
	ProcessTimeout int      `json:"process-timeout,omitempty"`
	CacheDir       string   `json:"cache-dir,omitempty"`
	FXPAsset       FXPAsset `json:"fxp-asset,omitempty"`
}

type FXPAsset struct {
	Enabled bool `json:"enabled"`
}

type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Package is a concrete, resolved package version.
type Package struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type,omitempty"`
	Time        string            `json:"time,omitempty"`
	Require     map[string]string `json:"require,omitempty"`
	Dist        Dist              `json:"dist"`
	Autoload    Autoload          `json:"autoload,omitempty"`
}

type Dist struct {
	URL      string `json:"url"`
	Type     string `json:"type"` // zip, tar
	Checksum string `json:"checksum,omitempty"`
	Shasum   string `json:"shasum,omitempty"`
}

// SearchResult is one hit of a repository search.
type SearchResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Repository  string `json:"repository"`
	Downloads   int64  `json:"downloads"`
	Favers      int64  `json:"favers"`
}
