package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

// DocumentTables are the tables a SQL datastore needs before it can store documents.
var DocumentTables = []string{"documents", "document_references"}

var ErrUnknownEngine = errors.New("unknown datastore engine type")

// MigrationProvider brings the document schema of one datastore engine up to date.
type MigrationProvider interface {
	// Engine is the name the provider is selected by, as in 'datastore.engine'.
	Engine() string

	// Migrate moves the schema to config.TargetVersion, or to the newest version the
	// provider knows when the target is zero, and reports the resulting status.
	Migrate(ctx context.Context, config MigrationConfig) (*MigrationStatus, error)

	// Status reports the schema of the datastore without changing it.
	Status(ctx context.Context, config MigrationConfig) (*MigrationStatus, error)
}

// MigrationConfig locates the datastore to migrate.
type MigrationConfig struct {
	Engine        string
	URI           string
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
	Username      string
	Password      string
}

// MigrationStatus describes the document schema of a datastore.
type MigrationStatus struct {
	Engine string
	// Version is the applied schema version.
	Version int64
	// Latest is the newest version the provider can migrate to.
	Latest int64
	// Applied lists, in order, the versions run or rolled back by the call that returned the status.
	Applied []int64
	// MissingTables lists the DocumentTables absent from the datastore.
	MissingTables []string
}

// Ready reports whether the datastore can store documents with the newest schema.
func (s *MigrationStatus) Ready() bool {
	return len(s.MissingTables) == 0 && s.Version == s.Latest
}

// MissingDocumentTables returns the DocumentTables not in tables.
func MissingDocumentTables(tables []string) []string {
	var missing []string
	for _, t := range DocumentTables {
		if !slices.Contains(tables, t) {
			missing = append(missing, t)
		}
	}
	return missing
}

// MigratorRegistry selects the migration provider of a datastore engine.
type MigratorRegistry struct {
	providers map[string]MigrationProvider
}

func NewMigratorRegistry(providers ...MigrationProvider) *MigratorRegistry {
	r := &MigratorRegistry{providers: make(map[string]MigrationProvider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider under its engine name, replacing any earlier one.
func (r *MigratorRegistry) Register(provider MigrationProvider) {
	r.providers[provider.Engine()] = provider
}

func (r *MigratorRegistry) Provider(engine string) (MigrationProvider, error) {
	provider, ok := r.providers[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	return provider, nil
}

// Engines returns the registered engine names, sorted.
func (r *MigratorRegistry) Engines() []string {
	engines := make([]string, 0, len(r.providers))
	for engine := range r.providers {
		engines = append(engines, engine)
	}
	sort.Strings(engines)
	return engines
}
