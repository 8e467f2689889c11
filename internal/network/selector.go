package network

import (
	"sync"

	"solana-token-studio/internal/domain"
)

// Selector holds the current cluster and bundler choice.
// The zero value has nothing selected.
type Selector struct {
	mu      sync.RWMutex
	cluster *domain.ClusterEndpoint
	bundler *domain.BundlerEndpoint
}

// NewSelector creates a selector preset to cluster (empty for none).
func NewSelector(cluster string) (*Selector, error) {
	s := &Selector{}
	if cluster == "" {
		return s, nil
	}
	if _, err := s.SelectCluster(cluster); err != nil {
		return nil, err
	}
	return s, nil
}

// SelectCluster sets the cluster. Returns true if the selection changed.
func (s *Selector) SelectCluster(name string) (bool, error) {
	c, err := ClusterByName(name)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.cluster == nil || s.cluster.Cluster != c.Cluster
	s.cluster = &c
	return changed, nil
}

// SelectBundler sets the bundler by id. Returns true if the selection changed.
func (s *Selector) SelectBundler(id int) (bool, error) {
	b, err := BundlerByID(id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.bundler == nil || s.bundler.ID != b.ID
	s.bundler = &b
	return changed, nil
}

// Cluster returns the selected cluster, if any.
func (s *Selector) Cluster() (domain.ClusterEndpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cluster == nil {
		return domain.ClusterEndpoint{}, false
	}
	return *s.cluster, true
}

// Bundler returns the selected bundler, if any.
func (s *Selector) Bundler() (domain.BundlerEndpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundler == nil {
		return domain.BundlerEndpoint{}, false
	}
	return *s.bundler, true
}
