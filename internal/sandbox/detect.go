package sandbox

import (
	"os"
	"path/filepath"
)

// ProjectType is the detected language of a repository, used to pick a
// container image with the right toolchain.
type ProjectType string

const (
	ProjectGo      ProjectType = "go"
	ProjectNode    ProjectType = "node"
	ProjectPython  ProjectType = "python"
	ProjectRust    ProjectType = "rust"
	ProjectUnknown ProjectType = "unknown"
)

var projectMarkers = []struct {
	file string
	typ  ProjectType
}{
	{"go.mod", ProjectGo},
	{"package.json", ProjectNode},
	{"pyproject.toml", ProjectPython},
	{"requirements.txt", ProjectPython},
	{"setup.py", ProjectPython},
	{"Cargo.toml", ProjectRust},
}

// DetectProjectType inspects well-known manifest files at the repo root.
func DetectProjectType(repoDir string) ProjectType {
	for _, m := range projectMarkers {
		if _, err := os.Stat(filepath.Join(repoDir, m.file)); err == nil {
			return m.typ
		}
	}
	return ProjectUnknown
}

// DockerImage picks the container image for a project type. A configured
// override always wins.
func DockerImage(typ ProjectType, cfg Config) string {
	if cfg.DockerImage != "" {
		return cfg.DockerImage
	}
	switch typ {
	case ProjectGo:
		return "golang:alpine"
	case ProjectNode:
		return "node:alpine"
	case ProjectPython:
		return "python:alpine"
	case ProjectRust:
		return "rust:alpine"
	default:
		return "alpine:latest"
	}
}
