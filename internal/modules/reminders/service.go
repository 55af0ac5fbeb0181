// Package reminders derives the dashboard's actionable notices from the raw
// household records: insurance renewals coming due, term deposits maturing,
// and the growth position drifting outside its target band.
package reminders

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/domain"
	"github.com/mosaicfin/mosaic/internal/modules/position"
)

// Reminder levels, most pressing first.
const (
	LevelUrgent  = "urgent"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// Reminder types.
const (
	TypeInsuranceRenewal = "insurance_renewal"
	TypeStableMaturity   = "stable_maturity"
	TypeGrowthPosition   = "growth_position"
)

// Reminder is one actionable notice. Days is nil for reminders that are not
// date-driven.
type Reminder struct {
	Type   string `json:"type"`
	Level  string `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Days   *int   `json:"days"`
	Link   string `json:"link"`
}

// HouseholdSource supplies the raw records reminders are derived from.
type HouseholdSource interface {
	ListStableAssets() ([]domain.StableAsset, error)
	ListInsurancePolicies() ([]domain.InsurancePolicy, error)
}

// PositionSource supplies the derived growth position view.
type PositionSource interface {
	Status() (*position.Status, error)
}

// Service derives reminders on demand; nothing is stored.
type Service struct {
	household HouseholdSource
	position  PositionSource
	log       zerolog.Logger
}

// NewService creates a new reminders service
func NewService(householdSource HouseholdSource, positionSource PositionSource, log zerolog.Logger) *Service {
	return &Service{
		household: householdSource,
		position:  positionSource,
		log:       log.With().Str("service", "reminders").Logger(),
	}
}

// Reminders derives the notice list as of now. Urgent sorts before warning
// before info; within a level, sooner dates first and date-less entries last.
func (s *Service) Reminders(now time.Time) ([]Reminder, error) {
	today := midnight(now)
	reminders := []Reminder{}

	policies, err := s.household.ListInsurancePolicies()
	if err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	for _, p := range policies {
		if p.Status != domain.PolicyStatusActive {
			continue
		}
		days, ok := daysUntil(today, p.NextPaymentDate)
		if !ok {
			continue
		}
		if r, ok := renewalReminder(p, days); ok {
			reminders = append(reminders, r)
		}
	}

	stable, err := s.household.ListStableAssets()
	if err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	for _, a := range stable {
		days, ok := daysUntil(today, a.EndDate)
		if !ok {
			continue
		}
		if r, ok := maturityReminder(a, days); ok {
			reminders = append(reminders, r)
		}
	}

	if r, ok, err := s.positionReminder(); err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	} else if ok {
		reminders = append(reminders, r)
	}

	sortReminders(reminders)
	return reminders, nil
}

func renewalReminder(p domain.InsurancePolicy, days int) (Reminder, bool) {
	r := Reminder{Type: TypeInsuranceRenewal, Days: &days, Link: "/insurance"}
	switch {
	case days < 0:
		r.Level = LevelUrgent
		r.Title = "保险已逾期续费"
		r.Detail = fmt.Sprintf("%s(%s) 已逾期%d天", p.Name, p.Insured, -days)
	case days <= 7:
		r.Level = LevelUrgent
		r.Title = "保险即将续费"
		r.Detail = fmt.Sprintf("%s(%s) 还有%d天", p.Name, p.Insured, days)
	case days <= 30:
		r.Level = LevelWarning
		r.Title = "保险续费提醒"
		r.Detail = fmt.Sprintf("%s(%s) 还有%d天", p.Name, p.Insured, days)
	default:
		return Reminder{}, false
	}
	return r, true
}

func maturityReminder(a domain.StableAsset, days int) (Reminder, bool) {
	r := Reminder{Type: TypeStableMaturity, Days: &days, Link: "/stable"}
	switch {
	case days < 0:
		r.Level = LevelUrgent
		r.Title = "理财已到期"
		r.Detail = fmt.Sprintf("%s 已到期%d天，请处理", a.Name, -days)
	case days <= 7:
		r.Level = LevelUrgent
		r.Title = "理财即将到期"
		r.Detail = fmt.Sprintf("%s 还有%d天到期", a.Name, days)
	case days <= 30:
		r.Level = LevelWarning
		r.Title = "理财到期提醒"
		r.Detail = fmt.Sprintf("%s 还有%d天到期", a.Name, days)
	default:
		return Reminder{}, false
	}
	return r, true
}

// positionReminder flags the growth position when it sits outside the target
// band. No budget configured means no reminder.
func (s *Service) positionReminder() (Reminder, bool, error) {
	status, err := s.position.Status()
	if err != nil {
		return Reminder{}, false, err
	}
	if status.TotalBudget <= 0 {
		return Reminder{}, false, nil
	}

	r := Reminder{Type: TypeGrowthPosition, Level: LevelWarning, Link: "/growth/position"}
	switch {
	case status.IsBelowMin:
		r.Title = "长钱仓位偏低"
		r.Detail = fmt.Sprintf("当前仓位 %.0f%%，低于目标下限 %.0f%%", status.PositionRatio, status.TargetPositionMin)
	case status.IsAboveMax:
		r.Title = "长钱仓位偏高"
		r.Detail = fmt.Sprintf("当前仓位 %.0f%%，高于目标上限 %.0f%%", status.PositionRatio, status.TargetPositionMax)
	default:
		return Reminder{}, false, nil
	}
	return r, true, nil
}

func sortReminders(reminders []Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		li, lj := levelRank(reminders[i].Level), levelRank(reminders[j].Level)
		if li != lj {
			return li < lj
		}
		return daysOr(reminders[i].Days, 999) < daysOr(reminders[j].Days, 999)
	})
}

func levelRank(level string) int {
	switch level {
	case LevelUrgent:
		return 0
	case LevelWarning:
		return 1
	case LevelInfo:
		return 2
	default:
		return 9
	}
}

func daysOr(days *int, def int) int {
	if days == nil {
		return def
	}
	return *days
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysUntil parses a YYYY-MM-DD date and returns the whole days from today.
// A nil or malformed date yields no reminder rather than an error.
func daysUntil(today time.Time, date *string) (int, bool) {
	if date == nil || *date == "" {
		return 0, false
	}
	d, err := time.ParseInLocation("2006-01-02", *date, time.UTC)
	if err != nil {
		return 0, false
	}
	return int(d.Sub(today).Hours() / 24), true
}
