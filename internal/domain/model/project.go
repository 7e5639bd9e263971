package model

// ProjectRef identifies a project in the upstream organization.
type ProjectRef struct {
	ID   string
	Name string
}

// RepositoryRef identifies a git repository within a project.
type RepositoryRef struct {
	ID   string
	Name string
}
