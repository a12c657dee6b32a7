package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
)

// CacheInvalidationService drops dependent cache keys when rule or claim
// writes are announced on the event bus. Write paths also invalidate their
// own keys synchronously; this service covers other process instances.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for change events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	ruleChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelRuleUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to rule updates: %w", err)
	}
	claimChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelClaimUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to claim updates: %w", err)
	}

	go s.processEvents(ruleChan)
	go s.processEvents(claimChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ChangeEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent drops the cache scope the event's write made stale
func (s *CacheInvalidationService) handleEvent(event *entities.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("Processing cache invalidation for event: %s (type: %s)", event.ID, event.EventType)

	switch event.EventType {
	case entities.ChangeEventCategoryDefaultUpdated,
		entities.ChangeEventExceptionUpserted,
		entities.ChangeEventExceptionsImported:
		// Rule writes stale out resolved decisions for the plan+category
		pattern := coverageCachePattern(event.InsurancePlanID, event.Category)
		s.deletePattern(ctx, pattern)
		// Tariff coverage reads the rule store too
		s.deletePattern(ctx, "report:tariff-coverage:*")

	case entities.ChangeEventClaimCreated, entities.ChangeEventClaimTransitioned:
		// Claim writes stale out every claim-derived report
		s.deletePattern(ctx, "report:*")

	default:
		log.Printf("Ignoring unknown change event type: %s", event.EventType)
	}
}

func (s *CacheInvalidationService) deletePattern(ctx context.Context, pattern string) {
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		log.Printf("Warning: Failed to invalidate cache pattern %s: %v", pattern, err)
		return
	}
	log.Printf("Invalidated cache pattern: %s", pattern)
}

// InvalidateReportCaches drops every memoized report. Used after maintenance
// or bulk data fixes.
func (s *CacheInvalidationService) InvalidateReportCaches(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, "report:*"); err != nil {
		return fmt.Errorf("failed to invalidate report caches: %w", err)
	}
	log.Println("Invalidated report caches")
	return nil
}

// InvalidatePlanCoverage drops every cached coverage decision for a plan
func (s *CacheInvalidationService) InvalidatePlanCoverage(ctx context.Context, planID string) error {
	pattern := fmt.Sprintf("coverage:%s:*", planID)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate plan coverage cache: %w", err)
	}
	log.Printf("Invalidated coverage cache for plan %s", planID)
	return nil
}
