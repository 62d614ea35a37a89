package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"duewatch/internal/models"
	"duewatch/internal/timeutil"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// ErrSourceUnavailable wraps any transport or non-200 fault from the Trello
// API after retries are exhausted. Callers retry on the next cycle.
var ErrSourceUnavailable = errors.New("trello source unavailable")

const defaultBaseURL = "https://api.trello.com/1"

type TrelloClient struct {
	Client   *http.Client
	APIKey   string
	APIToken string
	BoardID  string
	BaseURL  string
}

func NewTrelloClient(key, token, boardID string) *TrelloClient {
	return &TrelloClient{
		Client:   &http.Client{Timeout: 30 * time.Second},
		APIKey:   key,
		APIToken: token,
		BoardID:  boardID,
		BaseURL:  defaultBaseURL,
	}
}

// FetchAllCards returns the current snapshot of every card on the board.
func (tc *TrelloClient) FetchAllCards(ctx context.Context) ([]models.TrelloCard, error) {
	var cards []models.TrelloCard
	params := url.Values{"fields": {"id,due,name,desc,url,idList"}}
	if err := tc.getJSON(ctx, fmt.Sprintf("/boards/%s/cards", tc.BoardID), params, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// FetchDueChangeInstant returns the instant Trello recorded the most recent
// due-date edit for the card, or nil if the action stream has none. Only
// updateCard actions whose old snapshot contains the due field count.
func (tc *TrelloClient) FetchDueChangeInstant(ctx context.Context, cardID string) (*time.Time, error) {
	var actions []models.TrelloAction
	params := url.Values{"filter": {"updateCard"}, "limit": {"50"}}
	if err := tc.getJSON(ctx, fmt.Sprintf("/cards/%s/actions", cardID), params, &actions); err != nil {
		return nil, err
	}

	// Actions arrive newest first; the first due edit is the latest one.
	for _, action := range actions {
		if _, ok := action.Data.Old["due"]; !ok {
			continue
		}
		instant, err := timeutil.Parse(action.Date)
		if err != nil {
			zap.L().Warn("Malformed action date in change history",
				zap.String("cardID", cardID), zap.String("date", action.Date))
			continue
		}
		return &instant, nil
	}
	return nil, nil
}

// FetchComments returns the card's comment stream, newest first.
func (tc *TrelloClient) FetchComments(ctx context.Context, cardID string) ([]models.TrelloComment, error) {
	var actions []models.TrelloAction
	params := url.Values{"filter": {"commentCard"}, "limit": {"100"}}
	if err := tc.getJSON(ctx, fmt.Sprintf("/cards/%s/actions", cardID), params, &actions); err != nil {
		return nil, err
	}

	comments := make([]models.TrelloComment, 0, len(actions))
	for _, action := range actions {
		comments = append(comments, models.TrelloComment{
			CommentID: action.ID,
			Text:      action.Data.Text,
			CreatedAt: action.Date,
		})
	}
	return comments, nil
}

// FetchListName resolves a list id to its display name.
func (tc *TrelloClient) FetchListName(ctx context.Context, listID string) (string, error) {
	var list struct {
		Name string `json:"name"`
	}
	if err := tc.getJSON(ctx, fmt.Sprintf("/lists/%s", listID), url.Values{"fields": {"name"}}, &list); err != nil {
		return "", err
	}
	return list.Name, nil
}

func (tc *TrelloClient) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	params.Set("key", tc.APIKey)
	params.Set("token", tc.APIToken)
	apiURL := fmt.Sprintf("%s%s?%s", tc.BaseURL, path, params.Encode())

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := tc.Client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to send request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
			}

			if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
				return fmt.Errorf("failed to decode Trello response: %w", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrSourceUnavailable, path, err)
	}
	return nil
}
