package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/thushan/switchback/internal/logger"
)

// ManagedService is a long running part of the process. Start must return once
// the service is ready; Stop must be safe to call after a failed Start.
type ManagedService interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dependencies() []string
}

// ServiceManager starts services so that dependencies come up first and stops
// them in the reverse order
type ServiceManager struct {
	services   map[string]ManagedService
	logger     logger.StyledLogger
	startOrder []string
	mu         sync.RWMutex
}

func NewServiceManager(logger logger.StyledLogger) *ServiceManager {
	return &ServiceManager{
		services: make(map[string]ManagedService),
		logger:   logger,
	}
}

func (sm *ServiceManager) Register(service ManagedService) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := service.Name()
	if _, exists := sm.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}
	sm.services[name] = service
	sm.logger.Debug("Service registered", "name", name)
	return nil
}

// resolveDependencies orders services with Kahn's algorithm. Names are visited in
// sorted order so the start order is stable between runs.
func (sm *ServiceManager) resolveDependencies() ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	pending := make(map[string]int, len(sm.services))
	dependants := make(map[string][]string, len(sm.services))
	for name, service := range sm.services {
		deps := service.Dependencies()
		pending[name] = len(deps)
		for _, dep := range deps {
			if _, exists := sm.services[dep]; !exists {
				return nil, fmt.Errorf("service %s depends on unregistered %s", name, dep)
			}
			dependants[dep] = append(dependants[dep], name)
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(sm.services))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		next := dependants[current]
		slices.Sort(next)
		for _, name := range next {
			pending[name]--
			if pending[name] == 0 {
				ready = append(ready, name)
			}
		}
	}

	if len(order) != len(sm.services) {
		return nil, errors.New("circular service dependency detected")
	}
	return order, nil
}

// Start brings services up in dependency order. A failure stops everything that
// already started.
func (sm *ServiceManager) Start(ctx context.Context) error {
	order, err := sm.resolveDependencies()
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	sm.mu.Lock()
	sm.startOrder = order
	sm.mu.Unlock()

	started := make([]string, 0, len(order))
	for _, name := range order {
		service := sm.services[name]
		sm.logger.Debug("Starting service", "name", name, "dependencies", service.Dependencies())

		if err := service.Start(ctx); err != nil {
			sm.logger.Error("Failed to start service", "name", name, "error", err)
			slices.Reverse(started)
			_ = sm.stopServices(ctx, started)
			return fmt.Errorf("failed to start service %s: %w", name, err)
		}
		started = append(started, name)
	}

	sm.logger.Debug("All services started", "count", len(started))
	return nil
}

// Stop shuts services down in reverse start order, returning every error seen
func (sm *ServiceManager) Stop(ctx context.Context) error {
	sm.mu.RLock()
	order := slices.Clone(sm.startOrder)
	sm.mu.RUnlock()

	slices.Reverse(order)
	return sm.stopServices(ctx, order)
}

func (sm *ServiceManager) stopServices(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		service, exists := sm.services[name]
		if !exists {
			continue
		}
		if err := service.Stop(ctx); err != nil {
			sm.logger.Error("Failed to stop service", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		sm.logger.Debug("Service stopped", "name", name)
	}
	return errors.Join(errs...)
}

func (sm *ServiceManager) Get(name string) (ManagedService, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	service, exists := sm.services[name]
	return service, exists
}
