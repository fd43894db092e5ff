package bgg

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mlindegarde/blog--bg-stats/pkg/logger"
	"github.com/mlindegarde/blog--bg-stats/pkg/model"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public BGG XMLAPI2 endpoint.
const DefaultBaseURL = "https://www.boardgamegeek.com/xmlapi2"

const dateLayout = "2006-01-02"

// SentinelDate is recorded for plays whose date attribute is missing
// entirely. Downstream reports rely on this exact value to spot them.
var SentinelDate = time.Date(1981, time.October, 9, 0, 0, 0, 0, time.UTC)

// PlaysPage is the outcome of fetching one page of plays. Exactly one of the
// three classifications holds: RateLimited, !Successful, or Successful with
// the parsed plays attached.
type PlaysPage struct {
	Successful  bool
	RateLimited bool
	TotalCount  int
	MinDate     time.Time
	MaxDate     time.Time
	Page        int
	Plays       []model.Play
}

// Client fetches pages of plays for a game from BGG. Implementations are
// stateless single-shot request/parse calls; retrying is the caller's job.
type Client interface {
	// FetchPlays requests one page of the game's all-time play history.
	FetchPlays(ctx context.Context, gameID, page int) (PlaysPage, error)

	// FetchPlaysBetween requests one page of plays bounded to
	// [minDate, maxDate], dates truncated to the calendar day.
	FetchPlaysBetween(ctx context.Context, gameID int, minDate, maxDate time.Time, page int) (PlaysPage, error)
}

// HTTPClient implements Client against the XMLAPI2 plays endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// Config holds client settings.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// NewClient creates a new HTTPClient instance.
func NewClient(cfg Config, l *logger.Logger) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
	}
}

// FetchPlays requests one page of the game's all-time play history.
func (c *HTTPClient) FetchPlays(ctx context.Context, gameID, page int) (PlaysPage, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(gameID))
	query.Set("page", strconv.Itoa(page))

	return c.fetchPage(ctx, gameID, page, query)
}

// FetchPlaysBetween requests one page of plays bounded to [minDate, maxDate].
func (c *HTTPClient) FetchPlaysBetween(ctx context.Context, gameID int, minDate, maxDate time.Time, page int) (PlaysPage, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(gameID))
	query.Set("page", strconv.Itoa(page))
	query.Set("mindate", minDate.Format(dateLayout))
	query.Set("maxdate", maxDate.Format(dateLayout))

	result, err := c.fetchPage(ctx, gameID, page, query)
	if err != nil {
		return result, err
	}

	result.MinDate = minDate
	result.MaxDate = maxDate
	return result, nil
}

func (c *HTTPClient) fetchPage(ctx context.Context, gameID, page int, query url.Values) (PlaysPage, error) {
	uri := fmt.Sprintf("%s/plays?%s", c.baseURL, query.Encode())
	c.logger.Debug("loading plays", zap.String("uri", uri))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return PlaysPage{}, fmt.Errorf("failed to build plays request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors are not a page classification; they escape to the
		// caller's fatal path.
		return PlaysPage{}, fmt.Errorf("plays request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return PlaysPage{RateLimited: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("unexpected status from BGG", zap.Int("status", resp.StatusCode))
		return PlaysPage{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PlaysPage{}, fmt.Errorf("failed to read plays response: %w", err)
	}

	total, plays, err := parsePlaysDocument(body, gameID)
	if err != nil {
		c.logger.Warn("failed to parse plays response", zap.Error(err), zap.Int("game_id", gameID))
		return PlaysPage{}, nil
	}

	return PlaysPage{
		Successful: true,
		TotalCount: total,
		Page:       page,
		Plays:      plays,
	}, nil
}

type playsDocument struct {
	XMLName xml.Name      `xml:"plays"`
	Total   string        `xml:"total,attr"`
	Plays   []playElement `xml:"play"`
}

type playElement struct {
	ID       string          `xml:"id,attr"`
	Date     string          `xml:"date,attr"`
	Quantity string          `xml:"quantity,attr"`
	Location string          `xml:"location,attr"`
	Players  []playerElement `xml:"players>player"`
}

type playerElement struct {
	Username string `xml:"username,attr"`
	UserID   string `xml:"userid,attr"`
	Name     string `xml:"name,attr"`
	Score    string `xml:"score,attr"`
	Rating   string `xml:"rating,attr"`
	Win      string `xml:"win,attr"`
}

// parsePlaysDocument extracts the total attribute and the play list from a
// plays response body. Field handling is deliberately lenient: numeric
// attributes that are missing or garbage become 0, a missing date becomes
// SentinelDate, and a win flag counts only for the literal "1".
func parsePlaysDocument(body []byte, gameID int) (int, []model.Play, error) {
	var doc playsDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return 0, nil, err
	}

	plays := make([]model.Play, 0, len(doc.Plays))
	for _, p := range doc.Plays {
		players := make([]model.Player, 0, len(p.Players))
		for _, pl := range p.Players {
			players = append(players, model.Player{
				Username: pl.Username,
				UserID:   intOrZero(pl.UserID),
				Name:     pl.Name,
				Score:    intOrZero(pl.Score),
				Rating:   intOrZero(pl.Rating),
				DidWin:   pl.Win == "1",
			})
		}

		plays = append(plays, model.Play{
			ID:       intOrZero(p.ID),
			ObjectID: gameID,
			Date:     parsePlayDate(p.Date),
			Quantity: intOrZero(p.Quantity),
			Location: p.Location,
			Players:  players,
		})
	}

	return intOrZero(doc.Total), plays, nil
}

func intOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parsePlayDate(s string) time.Time {
	if s == "" {
		return SentinelDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
