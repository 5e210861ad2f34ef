package services

import (
	"fmt"
	"strings"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/go-playground/validator/v10"
)

// Filter names, in pipeline order
const (
	FilterValidEvent        = "valid_event"
	FilterEventNotCancelled = "event_not_cancelled"
	FilterNotAllDay         = "not_all_day"
	FilterNotSelf           = "not_self"
	FilterNotDeclined       = "not_declined"
	FilterNotInternalDomain = "not_internal_domain"
)

// FilterOutcome is the verdict of one filter on an (event, attendee) pair
type FilterOutcome struct {
	FilterName string `json:"filter_name"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason"`
	Value      string `json:"value,omitempty"`
}

// FilterResult is the verdict of the whole pipeline
type FilterResult struct {
	Filters     []FilterOutcome `json:"filters"`
	OverallPass bool            `json:"overall_pass"`
	SkipReason  string          `json:"skip_reason,omitempty"`
	SkipFilter  string          `json:"skip_filter,omitempty"`
}

// EligibilityFilter is a pure predicate over an (event, attendee) pair.
// Filters never fail; a negative verdict is reported through FilterOutcome.
type EligibilityFilter interface {
	Name() string
	Evaluate(event *models.CalendarEvent, email string) FilterOutcome
}

// EligibilityOptions holds the organization facts the filters depend on
type EligibilityOptions struct {
	OwnerEmail      string
	InternalDomains []string
}

// EligibilityPipeline runs the filters in a fixed order
type EligibilityPipeline struct {
	filters []EligibilityFilter
}

func NewEligibilityPipeline(opts EligibilityOptions) *EligibilityPipeline {
	domains := make([]string, 0, len(opts.InternalDomains))
	for _, domain := range opts.InternalDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}

	return &EligibilityPipeline{
		filters: []EligibilityFilter{
			&validEventFilter{validate: validator.New()},
			eventNotCancelledFilter{},
			notAllDayFilter{},
			notSelfFilter{ownerEmail: models.NormalizeEmail(opts.OwnerEmail)},
			notDeclinedFilter{},
			notInternalDomainFilter{domains: domains},
		},
	}
}

// Filters returns the filters in evaluation order
func (p *EligibilityPipeline) Filters() []EligibilityFilter {
	return p.filters
}

// Evaluate stops at the first failing filter
func (p *EligibilityPipeline) Evaluate(event *models.CalendarEvent, email string) FilterResult {
	return p.run(event, email, true)
}

// Explain runs every filter so that each condition is reported
func (p *EligibilityPipeline) Explain(event *models.CalendarEvent, email string) FilterResult {
	return p.run(event, email, false)
}

func (p *EligibilityPipeline) run(event *models.CalendarEvent, email string, shortCircuit bool) FilterResult {
	email = models.NormalizeEmail(email)
	result := FilterResult{
		Filters:     make([]FilterOutcome, 0, len(p.filters)),
		OverallPass: true,
	}

	for _, filter := range p.filters {
		outcome := filter.Evaluate(event, email)
		result.Filters = append(result.Filters, outcome)
		if outcome.Passed {
			continue
		}

		if result.OverallPass {
			result.OverallPass = false
			result.SkipReason = outcome.Reason
			result.SkipFilter = outcome.FilterName
		}
		if shortCircuit {
			break
		}
	}

	return result
}

type validEventFilter struct {
	validate *validator.Validate
}

func (f *validEventFilter) Name() string { return FilterValidEvent }

func (f *validEventFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	outcome := FilterOutcome{FilterName: f.Name(), Value: email}

	switch {
	case event == nil || strings.TrimSpace(event.ID) == "":
		outcome.Reason = "event has no id"
	case email == "":
		outcome.Reason = "attendee has no email"
	case f.validate.Var(email, "email") != nil:
		outcome.Reason = fmt.Sprintf("attendee email %q is not well-formed", email)
	default:
		outcome.Passed = true
		outcome.Reason = "event id and attendee email are valid"
	}

	return outcome
}

type eventNotCancelledFilter struct{}

func (eventNotCancelledFilter) Name() string { return FilterEventNotCancelled }

func (f eventNotCancelledFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	if event != nil && event.Cancelled {
		return FilterOutcome{FilterName: f.Name(), Reason: "event is cancelled"}
	}
	return FilterOutcome{FilterName: f.Name(), Passed: true, Reason: "event is not cancelled"}
}

type notAllDayFilter struct{}

func (notAllDayFilter) Name() string { return FilterNotAllDay }

func (f notAllDayFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	if event != nil && event.AllDay {
		return FilterOutcome{FilterName: f.Name(), Reason: "event is an all-day entry"}
	}
	return FilterOutcome{FilterName: f.Name(), Passed: true, Reason: "event has a start time"}
}

type notSelfFilter struct {
	ownerEmail string
}

func (notSelfFilter) Name() string { return FilterNotSelf }

func (f notSelfFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	outcome := FilterOutcome{FilterName: f.Name(), Value: email}

	self := email != "" && email == f.ownerEmail
	if event != nil {
		if attendee, ok := event.FindAttendee(email); ok && attendee.Self {
			self = true
		}
		if email != "" && email == models.NormalizeEmail(event.OwnerEmail) {
			self = true
		}
	}

	if self {
		outcome.Reason = "attendee is the calendar owner"
		return outcome
	}
	outcome.Passed = true
	outcome.Reason = "attendee is not the calendar owner"
	return outcome
}

type notDeclinedFilter struct{}

func (notDeclinedFilter) Name() string { return FilterNotDeclined }

func (f notDeclinedFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	status := models.ResponseNeedsAction
	if event != nil {
		if attendee, ok := event.FindAttendee(email); ok && attendee.ResponseStatus != "" {
			status = attendee.ResponseStatus
		}
	}

	outcome := FilterOutcome{FilterName: f.Name(), Value: string(status)}
	if status == models.ResponseDeclined {
		outcome.Reason = "attendee declined the invitation"
		return outcome
	}
	outcome.Passed = true
	outcome.Reason = fmt.Sprintf("attendee response is %s", status)
	return outcome
}

type notInternalDomainFilter struct {
	domains []string
}

func (notInternalDomainFilter) Name() string { return FilterNotInternalDomain }

func (f notInternalDomainFilter) Evaluate(event *models.CalendarEvent, email string) FilterOutcome {
	domain := models.EmailDomain(email)
	outcome := FilterOutcome{FilterName: f.Name(), Value: domain}

	for _, internal := range f.domains {
		if domain == internal || strings.HasSuffix(domain, "."+internal) {
			outcome.Reason = fmt.Sprintf("attendee belongs to the internal domain %s", internal)
			return outcome
		}
	}

	outcome.Passed = true
	outcome.Reason = "attendee is external"
	return outcome
}
