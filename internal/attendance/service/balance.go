package service

import (
	"context"
	"sync"

	"atendimento_backend/internal/agents"
	"atendimento_backend/internal/config"

	"github.com/google/uuid"
)

// balancer picks the receiving agent for auto-distributed contacts. Only
// online agents are candidates; every strategy degrades to "no agent" when
// the sector has nobody online, letting the contact wait in queue.
type balancer struct {
	mu       sync.Mutex
	rrCursor map[uuid.UUID]int // sector key -> next round-robin offset
}

func newBalancer() *balancer {
	return &balancer{rrCursor: make(map[uuid.UUID]int)}
}

func (b *balancer) pick(ctx context.Context, s *Service, sectorID *uuid.UUID) (*agents.Agent, error) {
	candidates, err := s.agents.ListBySector(ctx, sectorID)
	if err != nil {
		return nil, err
	}

	online := make([]agents.Agent, 0, len(candidates))
	for _, a := range candidates {
		status, err := s.presence.Status(ctx, a.ID)
		if err != nil {
			continue
		}
		if status == agents.PresenceOnline {
			online = append(online, a)
		}
	}
	if len(online) == 0 {
		return nil, nil
	}

	switch s.cfg.BalancingStrategy {
	case config.BalanceShortestQueue:
		return b.pickShortestQueue(ctx, s, online)
	case config.BalanceLowestAvgHandleTime:
		return b.pickLowestAvgHandleTime(ctx, s, online)
	case config.BalanceSeniority:
		// ListBySector orders by created_at: the most senior online agent.
		return &online[0], nil
	default:
		return b.pickRoundRobin(sectorID, online), nil
	}
}

func (b *balancer) pickRoundRobin(sectorID *uuid.UUID, online []agents.Agent) *agents.Agent {
	key := uuid.Nil
	if sectorID != nil {
		key = *sectorID
	}

	b.mu.Lock()
	cursor := b.rrCursor[key]
	b.rrCursor[key] = cursor + 1
	b.mu.Unlock()

	return &online[cursor%len(online)]
}

func (b *balancer) pickShortestQueue(ctx context.Context, s *Service, online []agents.Agent) (*agents.Agent, error) {
	counts, err := s.store.CountInProgressByAgent(ctx)
	if err != nil {
		return nil, err
	}

	best := &online[0]
	for i := range online[1:] {
		candidate := &online[i+1]
		if counts[candidate.ID] < counts[best.ID] {
			best = candidate
		}
	}
	return best, nil
}

func (b *balancer) pickLowestAvgHandleTime(ctx context.Context, s *Service, online []agents.Agent) (*agents.Agent, error) {
	averages, err := s.store.AgentAverageHandleSeconds(ctx)
	if err != nil {
		return nil, err
	}

	best := &online[0]
	for i := range online[1:] {
		candidate := &online[i+1]
		if averages[candidate.ID] < averages[best.ID] {
			best = candidate
		}
	}
	return best, nil
}
