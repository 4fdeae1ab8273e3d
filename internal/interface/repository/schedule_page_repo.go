package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
)

// DefaultScheduleURL is the airport reservation board
const DefaultScheduleURL = "https://lai.kal-soft.com/Schedule.asp?location=1"

const scheduleQueryDateLayout = "01/02/2006"

// HTTPSchedulePageRepository downloads schedule pages from the reservation board
type HTTPSchedulePageRepository struct {
	logger  logger.Logger
	baseURL *url.URL
	client  *http.Client
}

// NewHTTPSchedulePageRepository creates a new schedule page repository
func NewHTTPSchedulePageRepository(baseURL string, timeout time.Duration, logger logger.Logger) (repository.SchedulePageRepository, error) {
	if baseURL == "" {
		baseURL = DefaultScheduleURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule url: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSchedulePageRepository{
		logger:  logger,
		baseURL: parsed,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// FetchPage retrieves the page for one date
func (r *HTTPSchedulePageRepository) FetchPage(ctx context.Context, date time.Time) (string, error) {
	pageURL := *r.baseURL
	query := pageURL.Query()
	query.Set("date", date.Format(scheduleQueryDateLayout))
	pageURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", &entity.FetchError{Date: date, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &entity.FetchError{Date: date, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &entity.FetchError{Date: date, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &entity.FetchError{Date: date, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	r.logger.Debug("Retrieved schedule page",
		"date", entity.ScheduleDate(date),
		"status", resp.StatusCode,
		"bytes", len(body))

	return string(body), nil
}
