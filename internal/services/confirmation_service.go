package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alimgiray/salesconsole/internal/calendar"
	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EngineSettings are the tunables of the confirmation engine
type EngineSettings struct {
	Location    *time.Location
	ScanDays    int
	SnoozeDays  int
	Concurrency int
}

// BucketedItems is the operator board, one list per bucket
type BucketedItems struct {
	Today    []*models.ConfirmationItem `json:"today"`
	Tomorrow []*models.ConfirmationItem `json:"tomorrow"`
	Upcoming []*models.ConfirmationItem `json:"upcoming"`
	NoPhone  []*models.ConfirmationItem `json:"no_phone"`
}

func newBucketedItems() *BucketedItems {
	return &BucketedItems{
		Today:    []*models.ConfirmationItem{},
		Tomorrow: []*models.ConfirmationItem{},
		Upcoming: []*models.ConfirmationItem{},
		NoPhone:  []*models.ConfirmationItem{},
	}
}

func (b *BucketedItems) add(item *models.ConfirmationItem) {
	switch item.Bucket {
	case models.BucketToday:
		b.Today = append(b.Today, item)
	case models.BucketTomorrow:
		b.Tomorrow = append(b.Tomorrow, item)
	case models.BucketUpcoming:
		b.Upcoming = append(b.Upcoming, item)
	default:
		b.NoPhone = append(b.NoPhone, item)
	}
}

// Get returns the items of one bucket
func (b *BucketedItems) Get(bucket models.Bucket) []*models.ConfirmationItem {
	switch bucket {
	case models.BucketToday:
		return b.Today
	case models.BucketTomorrow:
		return b.Tomorrow
	case models.BucketUpcoming:
		return b.Upcoming
	default:
		return b.NoPhone
	}
}

// Total returns the number of items on the board
func (b *BucketedItems) Total() int {
	return len(b.Today) + len(b.Tomorrow) + len(b.Upcoming) + len(b.NoPhone)
}

// GenerationSummary is the outcome of one generation run
type GenerationSummary struct {
	RunID                string         `json:"run_id"`
	Buckets              *BucketedItems `json:"buckets"`
	TotalContactsCreated int            `json:"total_contacts_created"`
	EventsScanned        int            `json:"events_scanned"`
	PairsEvaluated       int            `json:"pairs_evaluated"`
	ItemsUpserted        int            `json:"items_upserted"`
	PairsSkipped         int            `json:"pairs_skipped"`
	PairsExcluded        int            `json:"pairs_excluded"`
	SkippedByFilter      map[string]int `json:"skipped_by_filter"`
}

// BulkCopyItemResult is the per-id outcome of a bulk copy
type BulkCopyItemResult struct {
	ItemID string `json:"item_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BulkCopyResult is the outcome of a bulk copy
type BulkCopyResult struct {
	Results []BulkCopyItemResult `json:"results"`
	Copied  int                  `json:"copied"`
}

// ConfirmationService runs the confirmation pipeline and the operator actions on its items
type ConfirmationService struct {
	source   calendar.EventSource
	pipeline *EligibilityPipeline
	resolver *ContactResolver
	renderer *MessageRenderer
	phones   *PhoneNormalizer
	itemRepo *repositories.ConfirmationItemRepository
	contacts *repositories.ContactRepository
	runRepo  *repositories.GenerationRunRepository
	settings EngineSettings
	now      func() time.Time
}

func NewConfirmationService(
	source calendar.EventSource,
	pipeline *EligibilityPipeline,
	phones *PhoneNormalizer,
	itemRepo *repositories.ConfirmationItemRepository,
	contacts *repositories.ContactRepository,
	runRepo *repositories.GenerationRunRepository,
	settings EngineSettings,
) *ConfirmationService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.ScanDays <= 0 {
		settings.ScanDays = MaxUpcomingDayOffset
	}
	if settings.SnoozeDays <= 0 {
		settings.SnoozeDays = 1
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}

	return &ConfirmationService{
		source:   source,
		pipeline: pipeline,
		resolver: NewContactResolver(contacts, phones),
		renderer: NewMessageRenderer(phones, settings.Location),
		phones:   phones,
		itemRepo: itemRepo,
		contacts: contacts,
		runRepo:  runRepo,
		settings: settings,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests and replays
func (s *ConfirmationService) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time of the service clock
func (s *ConfirmationService) Now() time.Time {
	return s.now()
}

// Settings returns the effective engine settings
func (s *ConfirmationService) Settings() EngineSettings {
	return s.settings
}

// Generate records a new run and executes it synchronously
func (s *ConfirmationService) Generate(ctx context.Context, trigger models.RunTrigger) (*GenerationSummary, error) {
	run := models.NewGenerationRun(trigger)
	run.MarkStarted()
	if err := s.runRepo.Create(run); err != nil {
		return nil, fmt.Errorf("create generation run: %w", err)
	}

	return s.ExecuteRun(ctx, run)
}

// runCounters accumulates the statistics of a run across goroutines
type runCounters struct {
	mu              sync.Mutex
	pairsEvaluated  int
	pairsSkipped    int
	pairsExcluded   int
	itemsUpserted   int
	contactsCreated int
	skippedByFilter map[string]int
}

func (c *runCounters) skip(filter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairsSkipped++
	c.skippedByFilter[filter]++
}

// ExecuteRun scans the calendar window and upserts one item per eligible pair.
// The run must already be marked as started; it is completed or failed here.
func (s *ConfirmationService) ExecuteRun(ctx context.Context, run *models.GenerationRun) (*GenerationSummary, error) {
	now := s.now()
	from, to := ScanWindow(now, s.settings.Location, s.settings.ScanDays)

	log := logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"trigger": run.Trigger,
	})
	log.WithFields(logrus.Fields{
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}).Info("Starting confirmation generation")

	events, err := s.source.ListEvents(ctx, from, to)
	if err != nil {
		err = fmt.Errorf("%w: list calendar events: %v", ErrSourceUnavailable, err)
		s.failRun(run, err)
		return nil, err
	}
	run.EventsScanned = len(events)

	counters := &runCounters{skippedByFilter: make(map[string]int)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)
	for i := range events {
		event := events[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.processEvent(&event, now, counters)
		})
	}

	err = g.Wait()

	run.PairsEvaluated = counters.pairsEvaluated
	run.PairsSkipped = counters.pairsSkipped
	run.PairsExcluded = counters.pairsExcluded
	run.ItemsUpserted = counters.itemsUpserted
	run.ContactsCreated = counters.contactsCreated

	if err != nil {
		s.failRun(run, err)
		return nil, err
	}

	run.MarkCompleted()
	if err := s.runRepo.Update(run); err != nil {
		log.WithError(err).Error("Failed to record completed generation run")
	}

	buckets, err := s.ListBuckets()
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"events_scanned":   run.EventsScanned,
		"pairs_evaluated":  run.PairsEvaluated,
		"pairs_skipped":    run.PairsSkipped,
		"pairs_excluded":   run.PairsExcluded,
		"items_upserted":   run.ItemsUpserted,
		"contacts_created": run.ContactsCreated,
	}).Info("Confirmation generation completed")

	return &GenerationSummary{
		RunID:                run.ID,
		Buckets:              buckets,
		TotalContactsCreated: run.ContactsCreated,
		EventsScanned:        run.EventsScanned,
		PairsEvaluated:       run.PairsEvaluated,
		ItemsUpserted:        run.ItemsUpserted,
		PairsSkipped:         run.PairsSkipped,
		PairsExcluded:        run.PairsExcluded,
		SkippedByFilter:      counters.skippedByFilter,
	}, nil
}

func (s *ConfirmationService) failRun(run *models.GenerationRun, cause error) {
	logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"trigger": run.Trigger,
	}).WithError(cause).Error("Confirmation generation failed")

	run.MarkFailed(cause.Error())
	if err := s.runRepo.Update(run); err != nil {
		logger.WithError(err).Errorf("Failed to record failed generation run %s", run.ID)
	}
}

func (s *ConfirmationService) processEvent(event *models.CalendarEvent, now time.Time, counters *runCounters) error {
	offset := DayOffset(event.Start, now, s.settings.Location)

	for _, email := range event.AttendeeEmails() {
		counters.mu.Lock()
		counters.pairsEvaluated++
		counters.mu.Unlock()

		result := s.pipeline.Evaluate(event, email)
		if !result.OverallPass {
			counters.skip(result.SkipFilter)
			continue
		}

		// Out-of-window meetings never create contacts or items
		if !InWindow(offset) {
			counters.mu.Lock()
			counters.pairsExcluded++
			counters.mu.Unlock()
			continue
		}

		resolution, err := s.resolver.Resolve(email)
		if err != nil {
			return err
		}

		bucket, _ := ClassifyBucket(event.Start, resolution.HasPhone, now, s.settings.Location)
		computed := s.computeItem(event, email, resolution, bucket, now)

		if _, err := s.itemRepo.Upsert(event.ID, email, func(existing *models.ConfirmationItem) *models.ConfirmationItem {
			return MergeConfirmationItem(existing, computed, now)
		}); err != nil {
			return fmt.Errorf("upsert item %s/%s: %w", event.ID, email, err)
		}

		counters.mu.Lock()
		counters.itemsUpserted++
		if resolution.Created {
			counters.contactsCreated++
		}
		counters.mu.Unlock()
	}

	return nil
}

func (s *ConfirmationService) computeItem(event *models.CalendarEvent, email string, resolution *ContactResolution, bucket models.Bucket, now time.Time) *models.ConfirmationItem {
	rendered := s.renderer.Render(resolution.Contact, event.Summary, event.Start)

	item := models.NewConfirmationItem(event.ID, email)
	item.EventSummary = event.Summary
	item.ContactID = resolution.Contact.ID
	item.ContactName = resolution.Contact.Name
	item.StartDatetime = event.Start
	item.Bucket = bucket
	item.MessageText = rendered.Text
	item.WhatsAppLink = rendered.WhatsAppLink
	item.ToPhone = rendered.ToPhone
	item.ContactWasCreated = resolution.Created
	item.CreatedAt = now
	item.UpdatedAt = now
	return item
}

// ListBuckets returns the board: items of meetings from today on, ordered by start then email.
// Buckets are re-derived for the current day. Items under an active snooze are left out;
// elapsed snoozes are shown as pending.
func (s *ConfirmationService) ListBuckets() (*BucketedItems, error) {
	now := s.now()

	items, err := s.itemRepo.ListFrom(LocalMidnight(now, s.settings.Location))
	if err != nil {
		return nil, fmt.Errorf("list confirmation items: %w", err)
	}

	buckets := newBucketedItems()
	for _, item := range items {
		s.present(item, now)
		if item.IsSnoozed() {
			continue
		}
		buckets.add(item)
	}
	return buckets, nil
}

// present adjusts an item for display without persisting anything
func (s *ConfirmationService) present(item *models.ConfirmationItem, now time.Time) {
	item.ReactivateIfDue(now)
	if bucket, ok := ClassifyBucket(item.StartDatetime, item.HasPhone(), now, s.settings.Location); ok {
		item.Bucket = bucket
	}
	item.StartDatetime = item.StartDatetime.In(s.settings.Location)
}

// GetItem returns a single item
func (s *ConfirmationService) GetItem(id string) (*models.ConfirmationItem, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, s.itemError(id, err)
	}
	s.present(item, s.now())
	return item, nil
}

// MarkCopied records that the operator copied the message of an item
func (s *ConfirmationService) MarkCopied(id string) (*models.ConfirmationItem, error) {
	now := s.now()
	item, err := s.itemRepo.Mutate(id, func(item *models.ConfirmationItem) error {
		item.MarkCopied(now)
		return nil
	})
	if err != nil {
		return nil, s.itemError(id, err)
	}

	s.present(item, now)
	return item, nil
}

// Snooze hides a pending item for SnoozeDays, counted in local calendar days from now
func (s *ConfirmationService) Snooze(id string) (*models.ConfirmationItem, time.Time, error) {
	now := s.now()
	until := SnoozeUntil(now, s.settings.Location, s.settings.SnoozeDays)

	item, err := s.itemRepo.Mutate(id, func(item *models.ConfirmationItem) error {
		return item.Snooze(now, until)
	})
	if err != nil {
		return nil, time.Time{}, s.itemError(id, err)
	}

	s.present(item, now)
	return item, until, nil
}

// BulkCopy marks every id as copied; failures are reported per id
func (s *ConfirmationService) BulkCopy(ids []string) *BulkCopyResult {
	result := &BulkCopyResult{Results: make([]BulkCopyItemResult, 0, len(ids))}

	for _, id := range ids {
		if _, err := s.MarkCopied(id); err != nil {
			result.Results = append(result.Results, BulkCopyItemResult{ItemID: id, Error: err.Error()})
			continue
		}
		result.Results = append(result.Results, BulkCopyItemResult{ItemID: id, OK: true})
		result.Copied++
	}

	return result
}

// AddPhone stores a phone on the item's contact and refreshes every item of that contact
func (s *ConfirmationService) AddPhone(id, phone string) (*models.ConfirmationItem, error) {
	digits, err := s.phones.Normalize(phone)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, s.itemError(id, err)
	}

	if err := s.contacts.UpdatePhone(item.ContactID, "+"+digits); err != nil {
		return nil, fmt.Errorf("update phone of contact %s: %w", item.ContactID, err)
	}
	contact, err := s.contacts.GetByID(item.ContactID)
	if err != nil {
		return nil, fmt.Errorf("reload contact %s: %w", item.ContactID, err)
	}

	related, err := s.itemRepo.ListByContactID(contact.ID)
	if err != nil {
		return nil, fmt.Errorf("list items of contact %s: %w", contact.ID, err)
	}

	now := s.now()
	var updated *models.ConfirmationItem
	for _, candidate := range related {
		refreshed, err := s.itemRepo.Mutate(candidate.ID, func(stored *models.ConfirmationItem) error {
			s.refreshContact(stored, contact, now)
			return nil
		})
		if err != nil {
			return nil, s.itemError(candidate.ID, err)
		}
		if refreshed.ID == id {
			updated = refreshed
		}
	}

	logger.WithFields(logrus.Fields{
		"contact_id": contact.ID,
		"items":      len(related),
	}).Info("Phone added to contact")

	if updated == nil {
		return s.GetItem(id)
	}
	s.present(updated, now)
	return updated, nil
}

// refreshContact re-renders an item after its contact changed
func (s *ConfirmationService) refreshContact(item *models.ConfirmationItem, contact *models.Contact, now time.Time) {
	rendered := s.renderer.Render(contact, item.EventSummary, item.StartDatetime)
	item.ContactName = contact.Name
	item.MessageText = rendered.Text
	item.WhatsAppLink = rendered.WhatsAppLink
	item.ToPhone = rendered.ToPhone

	if bucket, ok := ClassifyBucket(item.StartDatetime, item.HasPhone(), now, s.settings.Location); ok {
		item.Bucket = bucket
	}
}

// Reset puts an item back to pending, clearing copy and snooze state
func (s *ConfirmationService) Reset(id string) (*models.ConfirmationItem, error) {
	item, err := s.itemRepo.Mutate(id, func(item *models.ConfirmationItem) error {
		item.Reset()
		return nil
	})
	if err != nil {
		return nil, s.itemError(id, err)
	}

	s.present(item, s.now())
	return item, nil
}

// ListRuns returns the most recent generation runs
func (s *ConfirmationService) ListRuns(limit int) ([]*models.GenerationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.runRepo.ListRecent(limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []*models.GenerationRun{}
	}
	return runs, nil
}

func (s *ConfirmationService) itemError(id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return err
}
