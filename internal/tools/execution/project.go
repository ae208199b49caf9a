package execution

import "otto/internal/sandbox"

// testCommand returns the conventional test command for a project type.
// An empty name means no test runner is known for the type.
func testCommand(typ sandbox.ProjectType) (string, []string) {
	switch typ {
	case sandbox.ProjectGo:
		return "go", []string{"test", "./..."}
	case sandbox.ProjectNode:
		return "npm", []string{"test"}
	case sandbox.ProjectPython:
		return "pytest", nil
	case sandbox.ProjectRust:
		return "cargo", []string{"test"}
	}
	return "", nil
}

// buildCommand returns the conventional build command for a project
// type. Python has no build step.
func buildCommand(typ sandbox.ProjectType) (string, []string) {
	switch typ {
	case sandbox.ProjectGo:
		return "go", []string{"build", "./..."}
	case sandbox.ProjectNode:
		return "npm", []string{"run", "build"}
	case sandbox.ProjectRust:
		return "cargo", []string{"build"}
	}
	return "", nil
}
