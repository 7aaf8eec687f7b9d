// Package registry maps node types to step handlers and describes the
// configuration each node type accepts.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrNodeTypeNotRegistered = errors.New("node type not registered")
	ErrInvalidNodeConfig     = errors.New("invalid node config")
)

// NodeConfigError lists the schema violations of one node's config.
type NodeConfigError struct {
	NodeID   string
	NodeType models.NodeType
	Problems []string
}

func (e *NodeConfigError) Error() string {
	return fmt.Sprintf("node %s (%s): %s", e.NodeID, e.NodeType, strings.Join(e.Problems, "; "))
}

func (e *NodeConfigError) Unwrap() error {
	return ErrInvalidNodeConfig
}

// Registry holds node factories and the handlers built from them.
type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	factories map[models.NodeType]protocol.NodeFactory
	handlers  map[models.NodeType]protocol.StepHandler
	schemas   map[models.NodeType]*gojsonschema.Schema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[models.NodeType]protocol.NodeFactory),
		handlers:  make(map[models.NodeType]protocol.StepHandler),
		schemas:   make(map[models.NodeType]*gojsonschema.Schema),
	}
}

// RegisterNode adds a factory, replacing any factory of the same type.
// Handlers are built by Build.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.Type()] = factory
	delete(r.handlers, factory.Type())
	delete(r.schemas, factory.Type())
}

// Build creates the handler of every registered factory with deps.
func (r *Registry) Build(deps protocol.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if deps.Logger == nil {
		deps.Logger = r.logger
	}

	var errs []error

	for nodeType, factory := range r.factories {
		handler, err := factory.Create(deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s handler: %w", nodeType, err))

			continue
		}

		r.handlers[nodeType] = handler
	}

	r.logger.Info("node handlers built", "count", len(r.handlers))

	return errors.Join(errs...)
}

// Handler returns the built handler for nodeType.
func (r *Registry) Handler(nodeType models.NodeType) (protocol.StepHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[nodeType]

	return handler, ok
}

// NodeTypes describes every registered node type, sorted by type.
func (r *Registry) NodeTypes() []models.RegisteredNodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.RegisteredNodeType, 0, len(r.factories))
	for _, factory := range r.factories {
		types = append(types, models.RegisteredNodeType{
			Type:        factory.Type(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	sort.Slice(types, func(i, j int) bool { return types[i].Type < types[j].Type })

	return types
}

// ValidateNodes checks every node's config against its factory schema.
func (r *Registry) ValidateNodes(nodes []*models.Node) error {
	var errs []error

	for _, node := range nodes {
		if err := r.ValidateNode(node); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ValidateNode checks node.Config against the schema of its type.
func (r *Registry) ValidateNode(node *models.Node) error {
	schema, err := r.schema(node.Type)
	if err != nil {
		return err
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate node %s: %w", node.ID, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return &NodeConfigError{NodeID: node.ID, NodeType: node.Type, Problems: problems}
}

func (r *Registry) schema(nodeType models.NodeType) (*gojsonschema.Schema, error) {
	r.mu.RLock()
	compiled, ok := r.schemas[nodeType]
	factory, registered := r.factories[nodeType]
	r.mu.RUnlock()

	if ok {
		return compiled, nil
	}

	if !registered {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(factory.Schema().Map()))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", nodeType, err)
	}

	r.mu.Lock()
	r.schemas[nodeType] = compiled
	r.mu.Unlock()

	return compiled, nil
}

// LoadNodePlugins opens every .so under pluginsPath/nodes and returns the
// NodeFactory each exports as the "Node" symbol.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	return loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}

		castV, ok := v.(T)
		if !ok {
			// Exported variables are looked up as pointers.
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("plugin %s: symbol %s has type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
