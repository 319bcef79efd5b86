package schema

import (
	"fmt"
	"sort"
)

// Reader is the read-only lookup service over loaded schema metadata.
type Reader interface {
	// Projects returns every project, ordered by endpoint name.
	Projects() []*ProjectSchema

	// ResourceSchema returns the concrete resource with the given project and resource name.
	ResourceSchema(projectName, resourceName string) (*ResourceSchema, error)

	// ResourceSchemaByEndpoint resolves a resource from URL segments, e.g. ('ed-fi', 'schools').
	// Endpoint matching is case-insensitive.
	ResourceSchemaByEndpoint(projectEndpoint, endpoint string) (*ResourceSchema, error)

	// AbstractResource returns the abstract resource with the given name.
	AbstractResource(projectName, resourceName string) (*AbstractResourceSchema, error)
}

var _ Reader = (*ApiSchema)(nil)

func (s *ApiSchema) Projects() []*ProjectSchema {
	projects := make([]*ProjectSchema, 0, len(s.ProjectSchemas))
	for _, p := range s.ProjectSchemas {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].ProjectEndpointName < projects[j].ProjectEndpointName
	})
	return projects
}

func (s *ApiSchema) project(projectName string) (*ProjectSchema, error) {
	p, ok := s.projects[projectName]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrProjectNotFound, projectName)
	}
	return p, nil
}

func (s *ApiSchema) ResourceSchema(projectName, resourceName string) (*ResourceSchema, error) {
	p, err := s.project(projectName)
	if err != nil {
		return nil, err
	}
	r, ok := p.byName[resourceName]
	if !ok {
		return nil, resourceNotFound(projectName, resourceName)
	}
	return r, nil
}

func (s *ApiSchema) ResourceSchemaByEndpoint(projectEndpoint, endpoint string) (*ResourceSchema, error) {
	for key, p := range s.ProjectSchemas {
		if endpointKey(key) != endpointKey(projectEndpoint) {
			continue
		}
		r, ok := p.byEndpoint[endpointKey(endpoint)]
		if !ok {
			return nil, fmt.Errorf("%w: '/%s/%s'", ErrResourceNotFound, projectEndpoint, endpoint)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrProjectNotFound, projectEndpoint)
}

func (s *ApiSchema) AbstractResource(projectName, resourceName string) (*AbstractResourceSchema, error) {
	p, err := s.project(projectName)
	if err != nil {
		return nil, err
	}
	a, ok := p.AbstractResources[resourceName]
	if !ok {
		return nil, resourceNotFound(projectName, resourceName)
	}
	return a, nil
}

// Resources returns the concrete resources of the project, ordered by resource name.
func (p *ProjectSchema) Resources() []*ResourceSchema {
	resources := make([]*ResourceSchema, 0, len(p.ResourceSchemas))
	for _, r := range p.ResourceSchemas {
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].ResourceName < resources[j].ResourceName
	})
	return resources
}

// Abstracts returns the abstract resources of the project, ordered by resource name.
func (p *ProjectSchema) Abstracts() []*AbstractResourceSchema {
	abstracts := make([]*AbstractResourceSchema, 0, len(p.AbstractResources))
	for _, a := range p.AbstractResources {
		abstracts = append(abstracts, a)
	}
	sort.Slice(abstracts, func(i, j int) bool {
		return abstracts[i].ResourceName < abstracts[j].ResourceName
	})
	return abstracts
}
