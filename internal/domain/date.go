package domain

import "time"

// DateOnly отбрасывает время, оставляя дату в UTC. Даты заказов и расчёты
// по циклам фатуры работают только с датами без времени.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
