package schema

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
	"sigs.k8s.io/yaml"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
)

// DescriptorIdentityPath is the reserved identity path of every descriptor.
const DescriptorIdentityPath = "$.descriptor"

// LoadFile reads and loads a schema document from disk.
func LoadFile(path string) (*ApiSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api schema: %w", err)
	}
	return Load(data)
}

// Load parses a schema document, in JSON or YAML, compiles its path expressions and
// validates the links between resources. All problems found are reported together.
func Load(data []byte) (*ApiSchema, error) {
	s := &ApiSchema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	s.fingerprint = xxhash.Sum64(data)

	if err := s.index(); err != nil {
		return nil, err
	}

	var errs error
	for _, p := range s.Projects() {
		for _, r := range p.Resources() {
			if err := s.normalizeReferences(r); err != nil {
				errs = errors.Join(errs, &InvalidResourceError{ProjectName: r.ProjectName, ResourceName: r.ResourceName, Cause: err})
				continue
			}
			if err := r.compile(); err != nil {
				errs = errors.Join(errs, &InvalidResourceError{ProjectName: r.ProjectName, ResourceName: r.ResourceName, Cause: err})
			}
		}
		for _, a := range p.Abstracts() {
			for _, expr := range a.IdentityJSONPaths {
				if _, err := jsonpath.Compile(expr); err != nil {
					errs = errors.Join(errs, &InvalidResourceError{ProjectName: a.ProjectName, ResourceName: a.ResourceName, Cause: err})
				}
			}
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, errs)
	}

	return s, nil
}

// MustLoad is like Load but panics on error. Intended for tests and fixtures.
func MustLoad(data string) *ApiSchema {
	s, err := Load([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

// index fills derived names and lookup tables and links subclasses to their superclass.
func (s *ApiSchema) index() error {
	if len(s.ProjectSchemas) == 0 {
		return fmt.Errorf("%w: no project schemas", ErrInvalidSchema)
	}

	s.projects = make(map[string]*ProjectSchema, len(s.ProjectSchemas))
	for key, p := range s.ProjectSchemas {
		if p == nil || p.ProjectName == "" {
			return fmt.Errorf("%w: project '%s' has no projectName", ErrInvalidSchema, key)
		}
		if _, ok := s.projects[p.ProjectName]; ok {
			return fmt.Errorf("%w: duplicate project '%s'", ErrInvalidSchema, p.ProjectName)
		}
		if p.ProjectEndpointName == "" {
			p.ProjectEndpointName = key
		}
		s.projects[p.ProjectName] = p

		for name, a := range p.AbstractResources {
			if a.ResourceName == "" {
				a.ResourceName = name
			}
			a.ProjectName = p.ProjectName
			a.Subclasses = nil
		}

		p.byName = make(map[string]*ResourceSchema, len(p.ResourceSchemas))
		p.byEndpoint = make(map[string]*ResourceSchema, len(p.ResourceSchemas))
		for endpoint, r := range p.ResourceSchemas {
			if r == nil || r.ResourceName == "" {
				return fmt.Errorf("%w: resource '/%s/%s' has no resourceName", ErrInvalidSchema, p.ProjectEndpointName, endpoint)
			}
			if _, ok := p.byName[r.ResourceName]; ok {
				return fmt.Errorf("%w: duplicate resource '%s.%s'", ErrInvalidSchema, p.ProjectName, r.ResourceName)
			}
			r.ProjectName = p.ProjectName
			r.EndpointName = endpoint
			p.byName[r.ResourceName] = r
			p.byEndpoint[endpointKey(endpoint)] = r
		}
	}

	var errs error
	for _, p := range s.Projects() {
		for _, r := range p.Resources() {
			if !r.HasSuperclass() {
				continue
			}
			abstract, err := s.AbstractResource(r.SuperclassProjectName, r.SuperclassResourceName)
			if err != nil {
				errs = errors.Join(errs, &InvalidResourceError{ProjectName: r.ProjectName, ResourceName: r.ResourceName, Cause: fmt.Errorf("superclass: %w", err)})
				continue
			}
			abstract.Subclasses = append(abstract.Subclasses, r.ResourceName)
			sort.Strings(abstract.Subclasses)
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, errs)
	}

	return nil
}

// targetIdentity returns the identity paths of the resource a reference points to.
func (s *ApiSchema) targetIdentity(projectName, resourceName string) ([]string, error) {
	if r, err := s.ResourceSchema(projectName, resourceName); err == nil {
		return r.IdentityJSONPaths, nil
	}
	a, err := s.AbstractResource(projectName, resourceName)
	if err != nil {
		return nil, err
	}
	return a.IdentityJSONPaths, nil
}

// normalizeReferences checks each reference target exists and orders the reference
// paths as the target declares its identity, so that a reference and the document it
// points to produce the same identity.
func (s *ApiSchema) normalizeReferences(r *ResourceSchema) error {
	var errs error
	for name, dp := range r.DocumentPathsMapping {
		if !dp.IsReference {
			continue
		}
		if dp.IsDescriptor {
			target, err := s.ResourceSchema(dp.ProjectName, dp.ResourceName)
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("descriptor reference '%s': %w", name, err))
			} else if !target.IsDescriptor {
				errs = errors.Join(errs, fmt.Errorf("descriptor reference '%s' targets '%s' which is not a descriptor", name, target))
			}
			continue
		}

		targetPaths, err := s.targetIdentity(dp.ProjectName, dp.ResourceName)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("reference '%s': %w", name, err))
			continue
		}

		for _, rp := range dp.ReferenceJSONPaths {
			if !slices.Contains(targetPaths, rp.IdentityJSONPath) {
				errs = errors.Join(errs, fmt.Errorf("reference '%s': '%s' is not an identity path of '%s.%s'", name, rp.IdentityJSONPath, dp.ProjectName, dp.ResourceName))
			}
		}
		if len(dp.ReferenceJSONPaths) != len(targetPaths) {
			errs = errors.Join(errs, fmt.Errorf("reference '%s': declares %d of the %d identity paths of '%s.%s'", name, len(dp.ReferenceJSONPaths), len(targetPaths), dp.ProjectName, dp.ResourceName))
		}

		sorted := slices.Clone(dp.ReferenceJSONPaths)
		sort.SliceStable(sorted, func(i, j int) bool {
			return slices.Index(targetPaths, sorted[i].IdentityJSONPath) < slices.Index(targetPaths, sorted[j].IdentityJSONPath)
		})
		dp.ReferenceJSONPaths = sorted
		r.DocumentPathsMapping[name] = dp
	}
	return errs
}

func (r *ResourceSchema) compile() error {
	var errs error
	compile := func(expr string) jsonpath.Path {
		p, err := jsonpath.Compile(expr)
		if err != nil {
			errs = errors.Join(errs, err)
		}
		return p
	}

	r.identityPaths = nil
	for _, expr := range r.IdentityJSONPaths {
		r.identityPaths = append(r.identityPaths, compile(expr))
	}

	if r.SuperclassIdentityJSONPath != "" {
		r.superclassPath = compile(r.SuperclassIdentityJSONPath)
		if r.SubclassType == SubclassDomainEntity && len(r.IdentityJSONPaths) != 1 {
			errs = errors.Join(errs, fmt.Errorf("a domain entity subclass renaming its identity to '%s' must have exactly one identity path", r.SuperclassIdentityJSONPath))
		}
	}

	r.booleanPaths = nil
	for _, expr := range r.BooleanJSONPaths {
		r.booleanPaths = append(r.booleanPaths, compile(expr))
	}
	r.numericPaths = nil
	for _, expr := range r.NumericJSONPaths {
		r.numericPaths = append(r.numericPaths, compile(expr))
	}

	names := make([]string, 0, len(r.DocumentPathsMapping))
	for name := range r.DocumentPathsMapping {
		names = append(names, name)
	}
	sort.Strings(names)

	r.references, r.descriptors = nil, nil
	for _, name := range names {
		dp := r.DocumentPathsMapping[name]
		switch {
		case dp.IsReference && dp.IsDescriptor:
			if dp.Path == "" {
				errs = errors.Join(errs, fmt.Errorf("descriptor reference '%s' has no path", name))
				continue
			}
			p := compile(dp.Path)
			r.descriptors = append(r.descriptors, &Reference{
				Name:           name,
				ProjectName:    dp.ProjectName,
				ResourceName:   dp.ResourceName,
				IsDescriptor:   true,
				IsRequired:     dp.IsRequired,
				IdentityPaths:  []string{DescriptorIdentityPath},
				ReferencePaths: []jsonpath.Path{p},
				Parent:         p.Parent(),
			})
		case dp.IsReference:
			if len(dp.ReferenceJSONPaths) == 0 {
				errs = errors.Join(errs, fmt.Errorf("reference '%s' has no referenceJsonPaths", name))
				continue
			}
			ref := &Reference{
				Name:         name,
				ProjectName:  dp.ProjectName,
				ResourceName: dp.ResourceName,
				IsRequired:   dp.IsRequired,
			}
			for _, rp := range dp.ReferenceJSONPaths {
				ref.IdentityPaths = append(ref.IdentityPaths, rp.IdentityJSONPath)
				ref.ReferencePaths = append(ref.ReferencePaths, compile(rp.ReferenceJSONPath))
			}
			ref.Parent = referenceParent(ref.ReferencePaths)
			r.references = append(r.references, ref)
		case dp.Path != "":
			compile(dp.Path)
		}
	}

	r.equality = nil
	for _, c := range r.EqualityConstraints {
		r.equality = append(r.equality, CompiledEqualityConstraint{
			Source: compile(c.SourceJSONPath),
			Target: compile(c.TargetJSONPath),
		})
	}

	r.uniqueness = nil
	for _, group := range r.ArrayUniquenessConstraints {
		var paths []jsonpath.Path
		for _, expr := range group {
			paths = append(paths, compile(expr))
		}
		if len(paths) > 0 && jsonpath.CommonPrefix(paths...).IsConcrete() {
			errs = errors.Join(errs, fmt.Errorf("array uniqueness constraint %v does not share an array", group))
		}
		r.uniqueness = append(r.uniqueness, paths)
	}

	return errs
}

// referenceParent returns the path of the object holding a reference's values. When
// every path is the same, or only one is declared, the parent is the enclosing object.
func referenceParent(paths []jsonpath.Path) jsonpath.Path {
	prefix := jsonpath.CommonPrefix(paths...)
	for _, p := range paths {
		if p.Len() == prefix.Len() {
			return prefix.Parent()
		}
	}
	return prefix
}
