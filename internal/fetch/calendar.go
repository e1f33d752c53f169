package fetch

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// sessionCutoffHour and sessionCutoffMin mark when a trading day's extended
// hours data has settled (20:05 ET).
const (
	sessionCutoffHour = 20
	sessionCutoffMin  = 5
)

// Calendar answers trading-calendar questions against the Alpaca API.
type Calendar struct {
	client *alpaca.Client
	now    func() time.Time
}

// NewCalendar creates a Calendar with the given trading-API credentials.
func NewCalendar(apiKey, apiSecret, baseURL string) *Calendar {
	return &Calendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		now: time.Now,
	}
}

// LatestFinishedTradingDay returns the most recent trading day whose session
// has ended, i.e. after 20:05 ET so extended hours data has settled.
func (c *Calendar) LatestFinishedTradingDay() (time.Time, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}

	now := c.now().In(et)
	days, err := c.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format("2006-01-02")
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), sessionCutoffHour, sessionCutoffMin, 0, 0, et)

	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.Parse("2006-01-02", days[i].Date)
		if err != nil {
			continue
		}
		if days[i].Date == today {
			if now.After(cutoff) {
				return d, nil
			}
			continue
		}
		if d.Before(now) {
			return d, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}

// TradingDays returns the market's trading days within [start, end] in
// ascending order.
func (c *Calendar) TradingDays(start, end time.Time) ([]time.Time, error) {
	days, err := c.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}

	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
