// Package agents holds the built-in specialized agents registered with
// the kernel at startup.
package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sky-ai/skai/internal/agent"
	"github.com/sky-ai/skai/internal/session"
	"go.uber.org/zap"
)

// timezoneMap maps known city names to IANA timezone identifiers.
var timezoneMap = map[string]string{
	"new york":    "America/New_York",
	"london":      "Europe/London",
	"tokyo":       "Asia/Tokyo",
	"paris":       "Europe/Paris",
	"sydney":      "Australia/Sydney",
	"los angeles": "America/Los_Angeles",
	"chicago":     "America/Chicago",
	"mumbai":      "Asia/Kolkata",
	"beijing":     "Asia/Shanghai",
	"berlin":      "Europe/Berlin",
}

// WeatherTime answers weather and time queries. Time lookups use real
// timezone data; the weather report is a placeholder pending a real
// provider integration.
type WeatherTime struct {
	logger *zap.Logger
}

// NewWeatherTime creates the weather/time agent.
func NewWeatherTime(logger *zap.Logger) *WeatherTime {
	return &WeatherTime{logger: logger}
}

// Process implements agent.Capability.
func (w *WeatherTime) Process(ctx context.Context, message string, _ []session.Turn) (*agent.Result, error) {
	lower := strings.ToLower(message)
	city := extractCity(lower)

	if strings.Contains(lower, "time") || strings.Contains(lower, "clock") || strings.Contains(lower, "hour") {
		return w.currentTime(city)
	}
	return w.weather(city)
}

func (w *WeatherTime) weather(city string) (*agent.Result, error) {
	w.logger.Info("weather lookup", zap.String("city", city))
	if city == "new york" {
		report := "The weather in New York is sunny with a temperature of 25 degrees Celsius (77 degrees Fahrenheit)."
		return &agent.Result{
			Message: report,
			Extra:   map[string]any{"status": "success", "report": report},
		}, nil
	}
	msg := fmt.Sprintf("Weather information for '%s' is not available.", city)
	w.logger.Warn("weather not available", zap.String("city", city))
	return &agent.Result{
		Message: msg,
		Extra:   map[string]any{"status": "error", "error_message": msg},
	}, nil
}

func (w *WeatherTime) currentTime(city string) (*agent.Result, error) {
	w.logger.Info("time lookup", zap.String("city", city))
	tzName, ok := timezoneMap[city]
	if !ok {
		msg := fmt.Sprintf("Sorry, I don't have timezone information for %s.", city)
		w.logger.Warn("timezone not available", zap.String("city", city))
		return &agent.Result{
			Message: msg,
			Extra:   map[string]any{"status": "error", "error_message": msg},
		}, nil
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", tzName, err)
	}
	now := time.Now().In(loc)
	report := fmt.Sprintf("The current time in %s is %s", city, now.Format("2006-01-02 15:04:05 MST-0700"))
	return &agent.Result{
		Message: report,
		Extra:   map[string]any{"status": "success", "report": report},
	}, nil
}

// extractCity pulls the city mentioned after "in" from the message, or
// defaults to New York when no known city is named.
func extractCity(lower string) string {
	for city := range timezoneMap {
		if strings.Contains(lower, city) {
			return city
		}
	}
	if idx := strings.LastIndex(lower, " in "); idx >= 0 {
		city := strings.Trim(lower[idx+4:], " ?.!,")
		if city != "" {
			return city
		}
	}
	return "new york"
}
