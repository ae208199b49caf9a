package engine

// ToolSet specifies which categories of tools to include in the registry.
type ToolSet struct {
	Filesystem bool // read_file, list_files, write_file, delete_file
	Search     bool // grep
	Semantic   bool // codebase_search (requires a search index)
	Execution  bool // run_cmd, run_tests, run_build
	Editing    bool // search_replace
	VCS        bool // git_status, git_diff, git_log
	Meta       bool // think, respond
}

// DefaultToolSet enables everything except the semantic index, which
// needs explicit setup.
func DefaultToolSet() ToolSet {
	return ToolSet{
		Filesystem: true,
		Search:     true,
		Execution:  true,
		Editing:    true,
		VCS:        true,
		Meta:       true,
	}
}
