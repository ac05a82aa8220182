package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A network or http level failure while talking to the upstream
// service. It aborts the refresh of the account it occurred on, other
// accounts in the same batch are unaffected.
var ErrRemoteFetch = errors.New("remote fetch failure")

// Unknown is what a field renders as when the upstream did not report
// it. Missing fields never fail a refresh.
const Unknown = "unknown"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Client talks to the upstream account endpoints. The field names on
// the responses are fixed by the external service.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type identityResponse struct {
	Email string `json:"email"`
}

type trialResponse struct {
	DaysRemainingOnTrial *int `json:"daysRemainingOnTrial"`
}

type usageResponse struct {
	GPT4 struct {
		NumRequestsTotal int `json:"numRequestsTotal"`
		MaxRequestUsage  int `json:"maxRequestUsage"`
	} `json:"gpt-4"`
}

// Usage is the reconciled view over the three endpoint responses.
type Usage struct {
	Email         string
	Domain        string
	Quota         string
	DaysRemaining string
}

// FetchUsage issues the identity, trial and usage lookups concurrently
// using the normalized cookie. All three must succeed, a single failure
// aggregates into ErrRemoteFetch.
func (c *Client) FetchUsage(ctx context.Context, cookie string, userID string) (*Usage, error) {
	var identity identityResponse
	var trial trialResponse
	var usage usageResponse

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.get(ctx, "/api/auth/me", cookie, &identity)
	})
	group.Go(func() error {
		return c.get(ctx, "/api/auth/stripe", cookie, &trial)
	})
	group.Go(func() error {
		return c.get(ctx, "/api/usage?user="+url.QueryEscape(userID), cookie, &usage)
	})
	if err := group.Wait(); err != nil {
		return nil, errors.Wrapf(ErrRemoteFetch, "%v", err)
	}

	email := identity.Email
	if email == "" {
		email = Unknown
	}

	domain := Unknown
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = email[at+1:]
	}

	quota := Unknown
	if usage.GPT4.MaxRequestUsage > 0 {
		quota = fmt.Sprintf("%d / %d", usage.GPT4.NumRequestsTotal, usage.GPT4.MaxRequestUsage)
	}

	days := Unknown
	if trial.DaysRemainingOnTrial != nil {
		days = strconv.Itoa(*trial.DaysRemainingOnTrial)
	}

	return &Usage{
		Email:         email,
		Domain:        domain,
		Quota:         quota,
		DaysRemaining: days,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, cookie string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "could not build request for %s", path)
	}
	request.Header.Set("Cookie", cookie)
	request.Header.Set("User-Agent", userAgent)

	response, err := c.client.Do(request)
	if err != nil {
		return errors.Wrapf(err, "could not reach %s", path)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%s returned %s", path, response.Status)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "could not decode response from %s", path)
	}
	return nil
}
