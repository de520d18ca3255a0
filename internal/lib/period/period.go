// Package period вычисляет даты окончания покупок.
//
// Месяц тарифа равен ровно 31 дню, а не календарному месяцу. Год равен 365 дням.
package period

import (
	"strings"
	"time"
)

const (
	// MonthDays длительность месячного тарифа.
	MonthDays = 31
	// QuarterDays длительность квартального цикла (только заявки партнёров).
	QuarterDays = 90
	// YearDays длительность годового тарифа.
	YearDays = 365

	// ExpiringSoonWindow окно, в котором покупка считается истекающей.
	ExpiringSoonWindow = 7 * 24 * time.Hour
)

// PlanExpiry возвращает дату окончания прямой покупки.
// YEARLY даёт 365 дней, любой другой тариф (включая пустой) даёт 31 день.
func PlanExpiry(plan string, from time.Time) time.Time {
	if strings.EqualFold(plan, "YEARLY") {
		return from.AddDate(0, 0, YearDays)
	}
	return from.AddDate(0, 0, MonthDays)
}

// BillingCycleExpiry возвращает дату окончания для одобренной заявки:
// YEARLY 365 дней, QUARTERLY 90, остальное 31 день.
func BillingCycleExpiry(cycle string, from time.Time) time.Time {
	switch strings.ToUpper(cycle) {
	case "YEARLY":
		return from.AddDate(0, 0, YearDays)
	case "QUARTERLY":
		return from.AddDate(0, 0, QuarterDays)
	default:
		return from.AddDate(0, 0, MonthDays)
	}
}

// ExpiringSoon сообщает, что expiresAt попадает в [now, now+7d].
func ExpiringSoon(expiresAt, now time.Time) bool {
	return !expiresAt.Before(now) && !expiresAt.After(now.Add(ExpiringSoonWindow))
}

// Expired сообщает, что expiresAt < now.
func Expired(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}
