package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/questline/calsync/internal/provider"
)

// maxEventsPerCalendar caps a single list call. The sync window is bounded
// to roughly 3.5 months, so one page is enough in practice; subsequent
// pages are not requested.
const maxEventsPerCalendar = 250

var defaultEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Provider implements provider.CalendarProvider against the Google
// Calendar API.
type Provider struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	basePath     string // overrides the calendar API base URL in tests
}

// Option customizes a Provider.
type Option func(*Provider)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(url string) Option {
	return func(p *Provider) { p.endpoint.TokenURL = url }
}

// WithBasePath overrides the calendar API base URL.
func WithBasePath(url string) Option {
	return func(p *Provider) { p.basePath = url }
}

// NewProvider creates a Google Calendar provider. clientID and clientSecret
// are the OAuth application credentials; they may be empty, in which case
// RefreshToken fails until they are configured.
func NewProvider(clientID, clientSecret string, opts ...Option) *Provider {
	p := &Provider{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     defaultEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "google" }

// service builds a calendar service authenticated with a bearer token.
func (p *Provider) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if p.basePath != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(p.basePath))
	}
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// FetchEvents lists events in [timeMin, timeMax] with recurring events
// expanded into single instances. Cancelled events and events without a
// title are filtered out before returning.
func (p *Provider) FetchEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]provider.Event, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	list, err := svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEventsPerCalendar).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events for calendar %s: %w", calendarID, err)
	}

	var events []provider.Event
	for _, item := range list.Items {
		if item.Status == "cancelled" || item.Summary == "" {
			continue
		}
		events = append(events, toEvent(calendarID, item))
	}
	return events, nil
}

func toEvent(calendarID string, item *calendar.Event) provider.Event {
	ev := provider.Event{
		ID:         item.Id,
		CalendarID: calendarID,
		Title:      item.Summary,
	}
	if item.Start != nil {
		ev.Start = provider.EventTime{Date: item.Start.Date, DateTime: item.Start.DateTime}
	}
	if item.End != nil {
		ev.End = provider.EventTime{Date: item.End.Date, DateTime: item.End.DateTime}
	}
	return ev
}

// RefreshToken performs a refresh-token grant against the OAuth token
// endpoint and returns the new token. The returned token may omit the
// refresh token; callers must keep the old one in that case.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return nil, fmt.Errorf("google OAuth client credentials are not configured")
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	conf := &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     p.endpoint,
	}
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	return token, nil
}

// ListCalendars returns the calendars in the account's calendar list.
func (p *Provider) ListCalendars(ctx context.Context, accessToken string) ([]provider.CalendarInfo, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []provider.CalendarInfo
	for _, item := range list.Items {
		calendars = append(calendars, provider.CalendarInfo{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}
