package pkgmgr

// GraphNode is one package in the dependency tree. Constraint is what the
// parent asked for; Missing marks requirements nothing installed satisfies.
type GraphNode struct {
	Name       string
	Version    string
	Constraint string
	Missing    bool
	Cycle      bool
	Platform   bool
	Children   []*GraphNode
}

// DependencyGraph builds the installed dependency tree below the root
// requirements. A package already on the current path is marked as a cycle
// and not expanded again.
func DependencyGraph(root *RootPackage, installed *InstalledRepository) []*GraphNode {
	byName := map[string]Package{}
	for _, p := range installed.Packages() {
		byName[p.Name] = p
	}

	var build func(name, constraint string, path map[string]bool) *GraphNode
	build = func(name, constraint string, path map[string]bool) *GraphNode {
		node := &GraphNode{Name: name, Constraint: constraint}
		if isPlatformRequirement(name) {
			node.Platform = true
			return node
		}
		if version, ok := root.Provide[name]; ok {
			node.Version = version
			return node
		}
		pkg, ok := byName[name]
		if !ok {
			node.Missing = true
			return node
		}
		node.Version = pkg.Version
		if path[name] {
			node.Cycle = true
			return node
		}
		path[name] = true
		for _, dep := range sortedKeys(pkg.Require) {
			node.Children = append(node.Children, build(dep, pkg.Require[dep], path))
		}
		delete(path, name)
		return node
	}

	var nodes []*GraphNode
	for _, name := range sortedKeys(root.Require) {
		nodes = append(nodes, build(name, root.Require[name], map[string]bool{}))
	}
	return nodes
}

// Dependents lists installed packages that require name.
func Dependents(installed *InstalledRepository, name string) []string {
	var out []string
	for _, p := range installed.Packages() {
		if _, ok := p.Require[name]; ok {
			out = append(out, p.Name)
		}
	}
	return out
}
