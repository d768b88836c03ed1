package services

import (
	"sync"

	"water-auction/internal/models"
)

type resultKey struct {
	roundNumber   int
	participantID string
}

// ResultCache holds cleared-round results for the polling clients. Reads are
// side-effect free and repeatable: once a round's results are stored they
// never change, so a poller sees either "pending" or the identical result on
// every call.
type ResultCache struct {
	mu      sync.RWMutex
	rounds  map[int]models.RoundInfo
	results map[resultKey]models.ParticipantResult
}

func NewResultCache() *ResultCache {
	return &ResultCache{
		rounds:  make(map[int]models.RoundInfo),
		results: make(map[resultKey]models.ParticipantResult),
	}
}

// Put stores a cleared round and all its per-participant results.
func (c *ResultCache) Put(round models.RoundInfo, outcomes map[string]models.ParticipantResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rounds[round.RoundNumber] = round
	for participantID, outcome := range outcomes {
		c.results[resultKey{roundNumber: round.RoundNumber, participantID: participantID}] = outcome
	}
}

// PutOne backfills a single participant's result, used on cache misses served
// from storage after a restart.
func (c *ResultCache) PutOne(round models.RoundInfo, participantID string, outcome models.ParticipantResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rounds[round.RoundNumber] = round
	c.results[resultKey{roundNumber: round.RoundNumber, participantID: participantID}] = outcome
}

// Get returns a participant's result for a round, or false while the round is
// still pending.
func (c *ResultCache) Get(participantID string, roundNumber int) (models.RoundResultInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	round, ok := c.rounds[roundNumber]
	if !ok {
		return models.RoundResultInfo{}, false
	}
	outcome, ok := c.results[resultKey{roundNumber: roundNumber, participantID: participantID}]
	if !ok {
		return models.RoundResultInfo{}, false
	}

	return models.RoundResultInfo{
		RoundNumber:      round.RoundNumber,
		UniformPrice:     round.UniformPrice,
		TotalQuantity:    round.TotalQuantity,
		ExecutedQuantity: outcome.ExecutedQuantity,
		Profit:           outcome.Profit,
	}, true
}
